package cli

import (
	"github.com/spf13/pflag"

	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// hintFlags collects the optional binding-site hint shared by run and box.
type hintFlags struct {
	center   []float64
	size     []float64
	residues []string
}

func (h *hintFlags) register(fs *pflag.FlagSet) {
	fs.Float64SliceVar(&h.center, "center", nil, "hint box center x,y,z (Å)")
	fs.Float64SliceVar(&h.size, "size", nil, "hint box size x,y,z (Å); requires --center")
	fs.StringSliceVar(&h.residues, "residues", nil, "hint residues, e.g. A:45,A:67")
}

// build returns nil when no hint flag was given.
func (h *hintFlags) build() (*searchspace.Hint, error) {
	if len(h.center) == 0 && len(h.size) == 0 && len(h.residues) == 0 {
		return nil, nil
	}
	hint := &searchspace.Hint{}
	for _, s := range h.residues {
		ref, err := searchspace.ParseResidueRef(s)
		if err != nil {
			return nil, err
		}
		hint.Residues = append(hint.Residues, ref)
	}
	if len(h.center) > 0 {
		v, err := vec3("center", h.center)
		if err != nil {
			return nil, err
		}
		hint.Center = &v
	}
	if len(h.size) > 0 {
		if hint.Center == nil {
			return nil, errors.InvalidParam("--size requires --center")
		}
		v, err := vec3("size", h.size)
		if err != nil {
			return nil, err
		}
		hint.Size = &v
	}
	return hint, nil
}

func vec3(name string, vals []float64) (structure.Vec3, error) {
	if len(vals) != 3 {
		return structure.Vec3{}, errors.InvalidParam("--"+name+" takes exactly three values").
			WithDetailf("got %d", len(vals))
	}
	return structure.Vec3{vals[0], vals[1], vals[2]}, nil
}

//Personal.AI order the ending
