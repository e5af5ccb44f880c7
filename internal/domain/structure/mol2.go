package structure

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// ParseMOL2 reads the first molecule of a Tripos MOL2 stream.  Atom lines are
// whitespace separated: id name x y z type [subst_id subst_name charge].
func ParseMOL2(r io.Reader, id string) (*Structure, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		section   string
		atoms     []Atom
		bonds     []Bond
		serialIx  = make(map[int]int)
		lineNo    int
		molecules int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "@<TRIPOS>") {
			section = strings.TrimPrefix(line, "@<TRIPOS>")
			if section == "MOLECULE" {
				molecules++
				if molecules > 1 {
					break
				}
			}
			continue
		}

		fields := strings.Fields(line)
		switch section {
		case "ATOM":
			if len(fields) < 6 {
				return nil, errors.InvalidStructure("malformed MOL2 atom line").WithDetailf("%s line %d", id, lineNo)
			}
			serial, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, errors.InvalidStructure("malformed MOL2 atom id").WithDetailf("%s line %d", id, lineNo)
			}
			var coord Vec3
			for k := 0; k < 3; k++ {
				v, err := strconv.ParseFloat(fields[2+k], 64)
				if err != nil {
					return nil, errors.InvalidStructure("malformed MOL2 coordinate").WithDetailf("%s line %d", id, lineNo)
				}
				coord[k] = v
			}
			atom := Atom{
				Serial:  serial,
				Name:    fields[1],
				Element: normaliseElement(strings.SplitN(fields[5], ".", 2)[0]),
				Coord:   coord,
			}
			if len(fields) >= 8 {
				atom.ResName = fields[7]
				if seq, err := strconv.Atoi(fields[6]); err == nil {
					atom.ResSeq = seq
				}
			}
			serialIx[serial] = len(atoms)
			atoms = append(atoms, atom)
		case "BOND":
			if len(fields) < 4 {
				return nil, errors.InvalidStructure("malformed MOL2 bond line").WithDetailf("%s line %d", id, lineNo)
			}
			a, errA := strconv.Atoi(fields[1])
			b, errB := strconv.Atoi(fields[2])
			if errA != nil || errB != nil {
				return nil, errors.InvalidStructure("malformed MOL2 bond").WithDetailf("%s line %d", id, lineNo)
			}
			from, okA := serialIx[a]
			to, okB := serialIx[b]
			if !okA || !okB {
				return nil, errors.InvalidStructure("MOL2 bond references unknown atom").WithDetailf("%s line %d", id, lineNo)
			}
			order, err := strconv.Atoi(fields[3])
			if err != nil {
				// "ar", "am" and friends.
				order = 1
			}
			bonds = append(bonds, Bond{From: from, To: to, Order: order})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidStructure, "failed to read MOL2 file").WithDetail(id)
	}
	return New(id, FormatMOL2, atoms, bonds)
}

//Personal.AI order the ending
