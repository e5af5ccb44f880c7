// Package structure provides the immutable molecular structure model used by
// BlindDock: atoms with 3-D coordinates, optional bonds, and the geometric
// queries (bounding box, centroid, positional RMSD) the docking pipeline
// needs.  Parsers for PDB, PDBQT, SDF and MOL2 live alongside the model.
package structure

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Value Objects
// ─────────────────────────────────────────────────────────────────────────────

// Vec3 is a Cartesian coordinate in Ångström.
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// Dist2 returns the squared Euclidean distance between v and o.
func (v Vec3) Dist2(o Vec3) float64 {
	d := v.Sub(o)
	return d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
}

// IsFinite reports whether every component is neither NaN nor ±Inf.
func (v Vec3) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}

// Atom is a single atom with its residue context.  Residue fields are empty
// for small-molecule formats that carry no residue information.
type Atom struct {
	Serial  int
	Name    string
	Element string
	ResName string
	ChainID string
	ResSeq  int
	Coord   Vec3
}

// Bond connects two atoms by zero-based index.
type Bond struct {
	From  int
	To    int
	Order int
}

// Format names a structure file format.
type Format string

const (
	FormatPDB   Format = "pdb"
	FormatPDBQT Format = "pdbqt"
	FormatSDF   Format = "sdf"
	FormatMOL2  Format = "mol2"
)

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdb", ".ent":
		return FormatPDB, nil
	case ".pdbqt":
		return FormatPDBQT, nil
	case ".sdf", ".mol", ".sd":
		return FormatSDF, nil
	case ".mol2":
		return FormatMOL2, nil
	default:
		return "", errors.New(errors.CodeUnsupportedFormat, "unrecognised structure file extension").
			WithDetail(path)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregate
// ─────────────────────────────────────────────────────────────────────────────

// Structure is an immutable molecular structure.  Accessors return copies so
// callers cannot alter a parsed structure.
type Structure struct {
	id     string
	format Format
	atoms  []Atom
	bonds  []Bond
}

// New validates atoms and bonds and returns a Structure.  It fails with
// InvalidStructure when there are no atoms, a coordinate is not finite, or a
// bond references a missing atom.
func New(id string, format Format, atoms []Atom, bonds []Bond) (*Structure, error) {
	if len(atoms) == 0 {
		return nil, errors.InvalidStructure("structure has no atoms").WithDetail(id)
	}
	for i, a := range atoms {
		if !a.Coord.IsFinite() {
			return nil, errors.InvalidStructure("non-finite atom coordinate").
				WithDetailf("%s: atom %d (%s) at %v", id, i+1, a.Name, a.Coord)
		}
	}
	for _, b := range bonds {
		if b.From < 0 || b.From >= len(atoms) || b.To < 0 || b.To >= len(atoms) {
			return nil, errors.InvalidStructure("bond references unknown atom").
				WithDetailf("%s: bond %d-%d with %d atoms", id, b.From+1, b.To+1, len(atoms))
		}
	}

	s := &Structure{
		id:     id,
		format: format,
		atoms:  make([]Atom, len(atoms)),
		bonds:  make([]Bond, len(bonds)),
	}
	copy(s.atoms, atoms)
	copy(s.bonds, bonds)
	return s, nil
}

// ID returns the structure identifier (usually the file stem).
func (s *Structure) ID() string { return s.id }

// Format returns the format the structure was parsed from.
func (s *Structure) Format() Format { return s.format }

// AtomCount returns the number of atoms.
func (s *Structure) AtomCount() int { return len(s.atoms) }

// Atoms returns a copy of the atom list.
func (s *Structure) Atoms() []Atom {
	out := make([]Atom, len(s.atoms))
	copy(out, s.atoms)
	return out
}

// Bonds returns a copy of the bond list.
func (s *Structure) Bonds() []Bond {
	out := make([]Bond, len(s.bonds))
	copy(out, s.bonds)
	return out
}

// Coordinates returns the atom coordinates in atom order.
func (s *Structure) Coordinates() []Vec3 {
	out := make([]Vec3, len(s.atoms))
	for i, a := range s.atoms {
		out[i] = a.Coord
	}
	return out
}

// Select returns the coordinates of atoms accepted by keep.
func (s *Structure) Select(keep func(Atom) bool) []Vec3 {
	var out []Vec3
	for _, a := range s.atoms {
		if keep(a) {
			out = append(out, a.Coord)
		}
	}
	return out
}

// BoundingBox returns the axis-aligned bounding box of all atoms.
func (s *Structure) BoundingBox() AABB {
	box, _ := BoundingBox(s.Coordinates())
	return box
}

//Personal.AI order the ending
