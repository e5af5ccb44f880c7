package structure

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// autodockTypes maps AutoDock atom types found in PDBQT columns 78-79 to
// elements.  Types not listed are their own element symbol.
var autodockTypes = map[string]string{
	"A":   "C",
	"C":   "C",
	"N":   "N",
	"NA":  "N",
	"NS":  "N",
	"OA":  "O",
	"OS":  "O",
	"SA":  "S",
	"S":   "S",
	"HD":  "H",
	"HS":  "H",
	"H":   "H",
	"G0":  "C",
	"G1":  "C",
	"CG0": "C",
	"CG1": "C",
}

// ParsePDB reads ATOM and HETATM records from a PDB or PDBQT stream.  Only the
// first MODEL is read and alternate locations other than blank or "A" are
// skipped.  Coordinates come from the fixed columns 31-38, 39-46 and 47-54.
func ParsePDB(r io.Reader, id string, format Format) (*Structure, error) {
	if format == "" {
		format = FormatPDB
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var atoms []Atom
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		record := recordName(line)
		switch record {
		case "ENDMDL", "END":
			if len(atoms) > 0 {
				return New(id, format, atoms, nil)
			}
			continue
		case "ATOM", "HETATM":
		default:
			continue
		}

		atom, skip, err := parseAtomRecord(line, format)
		if err != nil {
			return nil, errors.InvalidStructure("malformed atom record").
				WithDetailf("%s line %d: %v", id, lineNo, err)
		}
		if skip {
			continue
		}
		atoms = append(atoms, atom)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidStructure, "failed to read structure").WithDetail(id)
	}
	return New(id, format, atoms, nil)
}

func recordName(line string) string {
	if len(line) < 6 {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line[:6])
}

// parseAtomRecord decodes one ATOM/HETATM line.  skip is true for alternate
// locations that are not the primary conformer.
func parseAtomRecord(line string, format Format) (Atom, bool, error) {
	if len(line) < 54 {
		return Atom{}, false, errors.InvalidParam("record shorter than 54 columns")
	}
	if alt := column(line, 16, 17); alt != "" && alt != "A" {
		return Atom{}, true, nil
	}

	var coord Vec3
	for i, span := range [3][2]int{{30, 38}, {38, 46}, {46, 54}} {
		v, err := strconv.ParseFloat(column(line, span[0], span[1]), 64)
		if err != nil {
			return Atom{}, false, err
		}
		coord[i] = v
	}

	atom := Atom{
		Name:    column(line, 12, 16),
		ResName: column(line, 17, 20),
		ChainID: column(line, 21, 22),
		Coord:   coord,
	}
	if serial, err := strconv.Atoi(column(line, 6, 11)); err == nil {
		atom.Serial = serial
	}
	if seq, err := strconv.Atoi(column(line, 22, 26)); err == nil {
		atom.ResSeq = seq
	}
	atom.Element = atomElement(line, atom.Name, format)
	return atom, false, nil
}

func atomElement(line, name string, format Format) string {
	if format == FormatPDBQT {
		if t := column(line, 77, 79); t != "" {
			if el, ok := autodockTypes[t]; ok {
				return el
			}
			return normaliseElement(t)
		}
	}
	if el := column(line, 76, 78); el != "" {
		return normaliseElement(el)
	}
	return elementFromName(name)
}

// column returns the trimmed substring [from, to) of line, tolerating short
// lines.
func column(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return strings.TrimSpace(line[from:to])
}

func elementFromName(name string) string {
	letters := strings.TrimLeftFunc(name, unicode.IsDigit)
	if letters == "" {
		return ""
	}
	return strings.ToUpper(letters[:1])
}

func normaliseElement(el string) string {
	el = strings.TrimSpace(el)
	if el == "" {
		return ""
	}
	if len(el) == 1 {
		return strings.ToUpper(el)
	}
	return strings.ToUpper(el[:1]) + strings.ToLower(el[1:])
}

//Personal.AI order the ending
