package structure

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// SDFRecord is one molecule of an SD file together with its data items
// ("> <tag>" blocks).
type SDFRecord struct {
	Title      string
	Structure  *Structure
	Properties map[string]string
}

// ParseSDF returns the first molecule of an SD or MOL stream.
func ParseSDF(r io.Reader, id string) (*Structure, error) {
	records, err := ParseSDFRecords(r, id)
	if err != nil {
		return nil, err
	}
	return records[0].Structure, nil
}

// ParseSDFRecords reads every V2000 molecule of an SD stream.  Records are
// separated by "$$$$"; a trailing record without the separator is accepted.
// Record i is identified as "<id>#<i+1>" when the stream holds several.
func ParseSDFRecords(r io.Reader, id string) ([]SDFRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		records []SDFRecord
		block   []string
	)
	flush := func() error {
		if len(block) == 0 || isBlank(block) {
			block = block[:0]
			return nil
		}
		recID := id
		if len(records) > 0 {
			recID = id + "#" + strconv.Itoa(len(records)+1)
		}
		rec, err := parseMolBlock(block, recID)
		if err != nil {
			return err
		}
		records = append(records, rec)
		block = block[:0]
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "$$$$") {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidStructure, "failed to read SD file").WithDetail(id)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.InvalidStructure("SD file holds no molecules").WithDetail(id)
	}
	// The first record keeps the bare id only when it is alone.
	if len(records) > 1 {
		records[0].Structure.id = id + "#1"
	}
	return records, nil
}

func isBlank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

// parseMolBlock decodes a MOL block: three header lines, the counts line, the
// atom block (x 1-10, y 11-20, z 21-30, element 32-34), the bond block and
// the optional data items.
func parseMolBlock(lines []string, id string) (SDFRecord, error) {
	if len(lines) < 4 {
		return SDFRecord{}, errors.InvalidStructure("MOL block shorter than its header").WithDetail(id)
	}
	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return SDFRecord{}, errors.New(errors.CodeUnsupportedFormat, "V3000 MOL blocks are not supported").WithDetail(id)
	}
	nAtoms, errA := strconv.Atoi(column(counts, 0, 3))
	nBonds, errB := strconv.Atoi(column(counts, 3, 6))
	if errA != nil || errB != nil {
		return SDFRecord{}, errors.InvalidStructure("malformed counts line").WithDetailf("%s: %q", id, counts)
	}
	if len(lines) < 4+nAtoms+nBonds {
		return SDFRecord{}, errors.InvalidStructure("MOL block truncated").
			WithDetailf("%s: %d atoms and %d bonds declared", id, nAtoms, nBonds)
	}

	atoms := make([]Atom, 0, nAtoms)
	for i := 0; i < nAtoms; i++ {
		line := lines[4+i]
		if len(line) < 34 {
			return SDFRecord{}, errors.InvalidStructure("atom line too short").WithDetailf("%s atom %d", id, i+1)
		}
		var coord Vec3
		for k, span := range [3][2]int{{0, 10}, {10, 20}, {20, 30}} {
			v, err := strconv.ParseFloat(column(line, span[0], span[1]), 64)
			if err != nil {
				return SDFRecord{}, errors.InvalidStructure("malformed atom coordinate").WithDetailf("%s atom %d", id, i+1)
			}
			coord[k] = v
		}
		el := normaliseElement(column(line, 31, 34))
		atoms = append(atoms, Atom{Serial: i + 1, Name: el, Element: el, Coord: coord})
	}

	bonds := make([]Bond, 0, nBonds)
	for i := 0; i < nBonds; i++ {
		line := lines[4+nAtoms+i]
		from, err1 := strconv.Atoi(column(line, 0, 3))
		to, err2 := strconv.Atoi(column(line, 3, 6))
		order, err3 := strconv.Atoi(column(line, 6, 9))
		if err1 != nil || err2 != nil || err3 != nil {
			return SDFRecord{}, errors.InvalidStructure("malformed bond line").WithDetailf("%s bond %d", id, i+1)
		}
		bonds = append(bonds, Bond{From: from - 1, To: to - 1, Order: order})
	}

	s, err := New(id, FormatSDF, atoms, bonds)
	if err != nil {
		return SDFRecord{}, err
	}
	return SDFRecord{
		Title:      strings.TrimSpace(lines[0]),
		Structure:  s,
		Properties: parseDataItems(lines[4+nAtoms+nBonds:]),
	}, nil
}

// parseDataItems collects "> <name>" items following "M  END".  Multi-line
// values are joined with newlines.
func parseDataItems(lines []string) map[string]string {
	props := make(map[string]string)
	var (
		name  string
		value []string
	)
	commit := func() {
		if name != "" {
			props[name] = strings.Join(value, "\n")
		}
		name, value = "", nil
	}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, ">"):
			commit()
			open := strings.Index(line, "<")
			end := strings.LastIndex(line, ">")
			if open >= 0 && end > open {
				name = line[open+1 : end]
			}
		case name != "" && strings.TrimSpace(line) == "":
			commit()
		case name != "":
			value = append(value, strings.TrimSpace(line))
		}
	}
	commit()
	return props
}

//Personal.AI order the ending
