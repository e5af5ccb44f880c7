// Package searchspace derives the docking box (center and extents) from a
// target structure.  In blind mode the box covers the whole target plus a
// margin on every side; with a binding-site hint the box is built around the
// hinted region and clamped to a bounded size.
package searchspace

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Value Objects
// ─────────────────────────────────────────────────────────────────────────────

// Mode records how a SearchSpace was derived.
type Mode string

const (
	ModeBlind  Mode = "blind"
	ModeHinted Mode = "hinted"
)

// SearchSpace is the docking box in Å.  Extents are full edge lengths.
type SearchSpace struct {
	Center  structure.Vec3 `json:"center"`
	Extents structure.Vec3 `json:"extents"`
	Margin  float64        `json:"margin"`
	Mode    Mode           `json:"mode"`
}

// Bounds returns the box as an AABB.
func (s SearchSpace) Bounds() structure.AABB {
	half := s.Extents.Scale(0.5)
	return structure.AABB{Min: s.Center.Sub(half), Max: s.Center.Add(half)}
}

// Volume returns the box volume in Å³.
func (s SearchSpace) Volume() float64 {
	return s.Extents[0] * s.Extents[1] * s.Extents[2]
}

func (s SearchSpace) String() string {
	return fmt.Sprintf("%s box center=%v size=%v", s.Mode, s.Center, s.Extents)
}

// ResidueRef identifies a residue of the target by chain and sequence number.
// An empty Chain matches every chain.
type ResidueRef struct {
	Chain  string `json:"chain,omitempty" yaml:"chain,omitempty"`
	ResSeq int    `json:"res_seq" yaml:"res_seq"`
}

// ParseResidueRef accepts "A:123", "A123" or "123".
func ParseResidueRef(s string) (ResidueRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ResidueRef{}, errors.InvalidParam("empty residue reference")
	}
	chain, num := "", s
	if i := strings.Index(s, ":"); i >= 0 {
		chain, num = s[:i], s[i+1:]
	} else if c := s[0]; (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
		chain, num = s[:1], s[1:]
	}
	seq, err := strconv.Atoi(num)
	if err != nil {
		return ResidueRef{}, errors.InvalidParam("malformed residue reference").WithDetail(s)
	}
	return ResidueRef{Chain: chain, ResSeq: seq}, nil
}

func (r ResidueRef) matches(a structure.Atom) bool {
	return a.ResSeq == r.ResSeq && (r.Chain == "" || r.Chain == a.ChainID)
}

// Hint narrows the search to a known or suspected binding site.  Either
// Residues or Center must be set.  Size, when set with Center, is used as the
// extents verbatim.
type Hint struct {
	Residues []ResidueRef    `json:"residues,omitempty" yaml:"residues,omitempty"`
	Center   *structure.Vec3 `json:"center,omitempty" yaml:"center,omitempty"`
	Size     *structure.Vec3 `json:"size,omitempty" yaml:"size,omitempty"`
}

// IsZero reports whether the hint carries no information.
func (h *Hint) IsZero() bool {
	return h == nil || (len(h.Residues) == 0 && h.Center == nil)
}

// Padding configures the builder.
type Padding struct {
	Margin        float64
	MinExtent     float64
	HintMargin    float64
	HintMinExtent float64
	HintMaxExtent float64
	MinAtoms      int
}

// DefaultPadding mirrors the defaults of internal/config.
func DefaultPadding() Padding {
	return Padding{
		Margin:        8,
		MinExtent:     20,
		HintMargin:    4,
		HintMinExtent: 20,
		HintMaxExtent: 28,
		MinAtoms:      3,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────────────────────

// Builder computes search spaces.  It is stateless apart from its padding and
// safe for concurrent use.
type Builder struct {
	pad Padding
}

// NewBuilder returns a Builder using pad.
func NewBuilder(pad Padding) *Builder {
	return &Builder{pad: pad}
}

// Build derives the search space for target.  ligand is optional; when set
// its largest dimension becomes an additional floor for every extent so the
// ligand always fits.  A zero hint selects blind mode.
func (b *Builder) Build(target, ligand *structure.Structure, hint *Hint) (SearchSpace, error) {
	if target == nil {
		return SearchSpace{}, errors.InvalidStructure("target structure is required")
	}
	if target.AtomCount() < b.pad.MinAtoms {
		return SearchSpace{}, errors.InvalidStructure("target has too few atoms to define a search space").
			WithDetailf("%s: %d atoms, need %d", target.ID(), target.AtomCount(), b.pad.MinAtoms)
	}

	floor := 0.0
	if ligand != nil {
		floor = structure.Span(ligand.Coordinates())
	}

	var (
		ss  SearchSpace
		err error
	)
	if hint.IsZero() {
		ss, err = b.blind(target, floor)
	} else {
		ss, err = b.hinted(target, hint, floor)
	}
	if err != nil {
		return SearchSpace{}, err
	}
	// Finite coordinates can still overflow once subtracted.
	if !ss.Center.IsFinite() || !ss.Extents.IsFinite() {
		return SearchSpace{}, errors.InvalidStructure("search space is not finite").
			WithDetailf("%s: center %v, extents %v", target.ID(), ss.Center, ss.Extents)
	}
	return ss, nil
}

// blind covers the whole target: extents = dims + 2*margin, never below the
// configured minimum.
func (b *Builder) blind(target *structure.Structure, floor float64) (SearchSpace, error) {
	box, err := structure.BoundingBox(target.Coordinates())
	if err != nil {
		return SearchSpace{}, err
	}
	dims := box.Dimensions()
	minExtent := math.Max(b.pad.MinExtent, floor)

	var ext structure.Vec3
	for i := 0; i < 3; i++ {
		ext[i] = math.Max(dims[i]+2*b.pad.Margin, minExtent)
	}
	return SearchSpace{
		Center:  box.Center(),
		Extents: ext,
		Margin:  b.pad.Margin,
		Mode:    ModeBlind,
	}, nil
}

func (b *Builder) hinted(target *structure.Structure, hint *Hint, floor float64) (SearchSpace, error) {
	if len(hint.Residues) == 0 {
		size := structure.Vec3{b.pad.HintMaxExtent, b.pad.HintMaxExtent, b.pad.HintMaxExtent}
		if hint.Size != nil {
			size = *hint.Size
		}
		if !hint.Center.IsFinite() || !size.IsFinite() || size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
			return SearchSpace{}, errors.InvalidParam("hint center and size must be finite and positive")
		}
		for i := 0; i < 3; i++ {
			size[i] = math.Max(size[i], floor)
		}
		return SearchSpace{Center: *hint.Center, Extents: size, Mode: ModeHinted}, nil
	}

	coords := target.Select(func(a structure.Atom) bool {
		for _, r := range hint.Residues {
			if r.matches(a) {
				return true
			}
		}
		return false
	})
	if len(coords) == 0 {
		return SearchSpace{}, errors.InvalidParam("hint residues not found in target").
			WithDetailf("%s: %v", target.ID(), hint.Residues)
	}
	box, err := structure.BoundingBox(coords)
	if err != nil {
		return SearchSpace{}, err
	}

	center := box.Center()
	if hint.Center != nil {
		center = *hint.Center
	}
	dims := box.Dimensions()
	var ext structure.Vec3
	for i := 0; i < 3; i++ {
		e := dims[i] + 2*b.pad.HintMargin
		e = math.Min(math.Max(e, b.pad.HintMinExtent), b.pad.HintMaxExtent)
		ext[i] = math.Max(e, floor)
	}
	return SearchSpace{
		Center:  center,
		Extents: ext,
		Margin:  b.pad.HintMargin,
		Mode:    ModeHinted,
	}, nil
}

//Personal.AI order the ending
