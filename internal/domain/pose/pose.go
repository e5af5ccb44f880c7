// Package pose turns raw docking engine output into canonical, immutable
// Poses.  Parsers are selected by format tag through a Registry and every
// energy leaves this package in kcal/mol with lower values more favourable.
package pose

import (
	"fmt"
	"math"

	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// Source identifies the run a pose came from.
type Source struct {
	JobID     string
	RunID     string
	Seed      int64
	OutputRef string
}

// Pose is one ligand placement reported by the engine.  It is immutable: the
// coordinate accessor returns a copy.
type Pose struct {
	id        string
	source    Source
	rank      int
	energy    float64
	rmsdLower float64
	rmsdUpper float64
	coords    []structure.Vec3
}

// New validates and builds a Pose.  rank is the 1-based position the engine
// gave the pose within its run and energy must already be normalised.
func New(src Source, rank int, energy, rmsdLower, rmsdUpper float64, coords []structure.Vec3) (*Pose, error) {
	if rank < 1 {
		return nil, errors.MalformedOutput("pose rank must be >= 1").WithDetailf("%s rank %d", src.RunID, rank)
	}
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return nil, errors.MalformedOutput("pose energy is not finite").WithDetailf("%s rank %d", src.RunID, rank)
	}
	if len(coords) == 0 {
		return nil, errors.MalformedOutput("pose has no atoms").WithDetailf("%s rank %d", src.RunID, rank)
	}
	for _, c := range coords {
		if !c.IsFinite() {
			return nil, errors.MalformedOutput("pose coordinate is not finite").WithDetailf("%s rank %d", src.RunID, rank)
		}
	}
	p := &Pose{
		id:        fmt.Sprintf("%s#%d", src.RunID, rank),
		source:    src,
		rank:      rank,
		energy:    energy,
		rmsdLower: rmsdLower,
		rmsdUpper: rmsdUpper,
		coords:    make([]structure.Vec3, len(coords)),
	}
	copy(p.coords, coords)
	return p, nil
}

// ID is "<run id>#<rank>".
func (p *Pose) ID() string { return p.id }

func (p *Pose) Source() Source     { return p.source }
func (p *Pose) JobID() string      { return p.source.JobID }
func (p *Pose) RunID() string      { return p.source.RunID }
func (p *Pose) Seed() int64        { return p.source.Seed }
func (p *Pose) Rank() int          { return p.rank }
func (p *Pose) Energy() float64    { return p.energy }
func (p *Pose) AtomCount() int     { return len(p.coords) }
func (p *Pose) RMSDLower() float64 { return p.rmsdLower }
func (p *Pose) RMSDUpper() float64 { return p.rmsdUpper }

// Coordinates returns a copy of the transformed ligand coordinates.
func (p *Pose) Coordinates() []structure.Vec3 {
	out := make([]structure.Vec3, len(p.coords))
	copy(out, p.coords)
	return out
}

// Ref references the pose inside its stored run output, "<output ref>#<rank>".
func (p *Pose) Ref() string {
	return fmt.Sprintf("%s#%d", p.source.OutputRef, p.rank)
}

// RMSD is the positional RMSD between two poses of the same ligand.
func RMSD(a, b *Pose) (float64, error) {
	return structure.RMSD(a.coords, b.coords)
}

// Less is the total order used for clustering and ranking: energy ascending,
// then seed, rank within run and pose id.
func Less(a, b *Pose) bool {
	if a.energy != b.energy {
		return a.energy < b.energy
	}
	if a.source.Seed != b.source.Seed {
		return a.source.Seed < b.source.Seed
	}
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.id < b.id
}

//Personal.AI order the ending
