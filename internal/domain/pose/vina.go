package pose

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// VinaParser reads AutoDock Vina PDBQT output: one MODEL block per pose, each
// carrying "REMARK VINA RESULT: <affinity> <rmsd lb> <rmsd ub>".
type VinaParser struct {
	convention Convention
}

// NewVinaParser returns a parser for Vina's native kcal/mol output.
func NewVinaParser() *VinaParser {
	return &VinaParser{convention: Canonical}
}

func (p *VinaParser) Format() string { return FormatPDBQT }

func (p *VinaParser) CanParse(format string) bool {
	return format == FormatPDBQT || format == "vina"
}

type vinaModel struct {
	lines  []string
	result []string
}

// Parse splits data into MODEL blocks.  Output without MODEL records is read
// as a single pose.  Every pose must carry exactly one result remark and all
// poses must have the same atom count.
func (p *VinaParser) Parse(src Source, data []byte) ([]*Pose, error) {
	models, err := splitModels(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedOutput, "failed to read PDBQT output").WithDetail(src.RunID)
	}
	if len(models) == 0 {
		return nil, errors.MalformedOutput("PDBQT output holds no MODEL").WithDetail(src.RunID)
	}

	poses := make([]*Pose, 0, len(models))
	for i, m := range models {
		rank := i + 1
		if m.result == nil {
			return nil, errors.MalformedOutput("MODEL without VINA RESULT remark").WithDetailf("%s model %d", src.RunID, rank)
		}
		if len(m.result) < 6 {
			return nil, errors.MalformedOutput("truncated VINA RESULT remark").WithDetailf("%s model %d", src.RunID, rank)
		}
		vals := make([]float64, 3)
		for k := range vals {
			v, err := strconv.ParseFloat(m.result[3+k], 64)
			if err != nil {
				return nil, errors.MalformedOutput("unparseable VINA RESULT value").
					WithDetailf("%s model %d: %q", src.RunID, rank, m.result[3+k])
			}
			vals[k] = v
		}

		st, err := structure.ParsePDB(strings.NewReader(strings.Join(m.lines, "\n")), src.RunID, structure.FormatPDBQT)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeMalformedOutput, "unreadable pose atoms").
				WithDetailf("%s model %d", src.RunID, rank)
		}
		if len(poses) > 0 && st.AtomCount() != poses[0].AtomCount() {
			return nil, errors.MalformedOutput("pose atom counts differ").
				WithDetailf("%s model %d: %d atoms, model 1: %d", src.RunID, rank, st.AtomCount(), poses[0].AtomCount())
		}

		pose, err := New(src, rank, p.convention.Normalize(vals[0]), vals[1], vals[2], st.Coordinates())
		if err != nil {
			return nil, err
		}
		poses = append(poses, pose)
	}
	return poses, nil
}

func splitModels(data []byte) ([]vinaModel, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		models  []vinaModel
		cur     vinaModel
		inModel bool
		bare    vinaModel
	)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "MODEL"):
			cur = vinaModel{}
			inModel = true
		case strings.HasPrefix(line, "ENDMDL"):
			if inModel {
				models = append(models, cur)
			}
			inModel = false
		default:
			target := &bare
			if inModel {
				target = &cur
			}
			if strings.HasPrefix(line, "REMARK VINA RESULT") {
				target.result = strings.Fields(line)
				continue
			}
			if strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM") {
				target.lines = append(target.lines, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inModel {
		return nil, errors.MalformedOutput("MODEL not closed by ENDMDL")
	}
	if len(models) == 0 && len(bare.lines) > 0 {
		models = append(models, bare)
	}
	return models, nil
}

//Personal.AI order the ending
