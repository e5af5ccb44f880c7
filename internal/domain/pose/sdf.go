package pose

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ScoreTag names an SD data item holding a pose score and its convention.
type ScoreTag struct {
	Name       string
	Convention Convention
}

// DefaultScoreTags are the affinity items written by Vina-family engines
// (smina, gnina, QuickVina) when emitting SDF.
var DefaultScoreTags = []ScoreTag{
	{Name: "minimizedAffinity", Convention: Canonical},
	{Name: "affinity", Convention: Canonical},
	{Name: "SCORE", Convention: Canonical},
}

// SDFParser reads scored multi-record SD output.  Each record is a pose in
// engine rank order; the first tag found among its data items gives the
// energy.
type SDFParser struct {
	tags []ScoreTag
}

// NewSDFParser returns a parser trying tags in order, or DefaultScoreTags.
func NewSDFParser(tags ...ScoreTag) *SDFParser {
	if len(tags) == 0 {
		tags = DefaultScoreTags
	}
	return &SDFParser{tags: tags}
}

func (p *SDFParser) Format() string { return FormatSDF }

func (p *SDFParser) CanParse(format string) bool {
	return format == FormatSDF || format == "mol" || format == "sd"
}

func (p *SDFParser) Parse(src Source, data []byte) ([]*Pose, error) {
	records, err := structure.ParseSDFRecords(bytes.NewReader(data), src.RunID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedOutput, "failed to read SDF output").WithDetail(src.RunID)
	}

	poses := make([]*Pose, 0, len(records))
	for i, rec := range records {
		rank := i + 1
		energy, err := p.energy(rec.Properties)
		if err != nil {
			return nil, err.WithDetailf("%s record %d", src.RunID, rank)
		}
		if len(poses) > 0 && rec.Structure.AtomCount() != poses[0].AtomCount() {
			return nil, errors.MalformedOutput("pose atom counts differ").
				WithDetailf("%s record %d: %d atoms, record 1: %d", src.RunID, rank, rec.Structure.AtomCount(), poses[0].AtomCount())
		}
		pose, perr := New(src, rank, energy, 0, 0, rec.Structure.Coordinates())
		if perr != nil {
			return nil, perr
		}
		poses = append(poses, pose)
	}
	return poses, nil
}

func (p *SDFParser) energy(props map[string]string) (float64, *errors.AppError) {
	for _, tag := range p.tags {
		raw, ok := props[tag.Name]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(firstLine(raw)), 64)
		if err != nil {
			return 0, errors.MalformedOutput("unparseable score item").WithCause(err)
		}
		return tag.Convention.Normalize(v), nil
	}
	return 0, errors.MalformedOutput("record carries no score item")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

//Personal.AI order the ending
