package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FixtureAtom is one ATOM or HETATM record of a PDB fixture.
type FixtureAtom struct {
	Hetero  bool
	Name    string
	ResName string
	Chain   string
	ResSeq  int
	X, Y, Z float64
	Element string
}

// CarbonTrace returns one CA atom per coordinate on chain A, numbering
// residues from 1.
func CarbonTrace(coords ...[3]float64) []FixtureAtom {
	atoms := make([]FixtureAtom, len(coords))
	for i, c := range coords {
		atoms[i] = FixtureAtom{Name: "CA", ResName: "ALA", Chain: "A", ResSeq: i + 1,
			X: c[0], Y: c[1], Z: c[2], Element: "C"}
	}
	return atoms
}

// PDB renders atoms as fixed-column PDB records followed by END.
func PDB(atoms []FixtureAtom) string {
	var b strings.Builder
	for i, a := range atoms {
		record := "ATOM"
		if a.Hetero {
			record = "HETATM"
		}
		fmt.Fprintf(&b, "%-6s%5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
			record, i+1, a.Name, a.ResName, a.Chain, a.ResSeq, a.X, a.Y, a.Z, 1.0, 0.0, a.Element)
	}
	b.WriteString("END\n")
	return b.String()
}

// WritePDB writes atoms to dir/name and returns the path.
func WritePDB(t testing.TB, dir, name string, atoms []FixtureAtom) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(PDB(atoms)), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

//Personal.AI order the ending
