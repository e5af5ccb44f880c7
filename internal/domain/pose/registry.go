package pose

import (
	"bytes"
	"strings"
	"sync"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// Format tags produced by the engines and understood by the built-in parsers.
const (
	FormatPDBQT = "pdbqt"
	FormatSDF   = "sdf"
)

// Parser decodes one output format.  Parse returns poses in the engine's own
// rank order and fails with MalformedOutput when no pose can be decoded.
type Parser interface {
	Format() string
	CanParse(format string) bool
	Parse(src Source, data []byte) ([]*Pose, error)
}

// Registry selects a Parser by declared or detected format tag.
type Registry struct {
	mu      sync.RWMutex
	parsers []Parser
}

// NewRegistry returns a registry holding parsers in priority order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// DefaultRegistry knows Vina PDBQT and scored SDF output.
func DefaultRegistry() *Registry {
	return NewRegistry(NewVinaParser(), NewSDFParser())
}

// Register appends p.  Earlier parsers win when several accept a format.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers = append(r.parsers, p)
}

// Formats lists the primary format tag of every registered parser.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		out[i] = p.Format()
	}
	return out
}

func (r *Registry) lookup(format string) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.parsers {
		if p.CanParse(format) {
			return p
		}
	}
	return nil
}

// Parse decodes data in format.  An empty format is sniffed from the content.
// Every failure carries CodeMalformedOutput; an unknown format additionally
// carries CodeUnsupportedFormat in its cause chain.
func (r *Registry) Parse(src Source, format string, data []byte) ([]*Pose, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = Sniff(data)
	}
	p := r.lookup(format)
	if p == nil {
		return nil, errors.MalformedOutput("no parser for output format").
			WithDetailf("%s: %q", src.RunID, format).
			WithCause(errors.New(errors.CodeUnsupportedFormat, "unsupported pose format").WithDetail(format))
	}
	poses, err := p.Parse(src, data)
	if err != nil {
		if errors.IsCode(err, errors.CodeMalformedOutput) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeMalformedOutput, "failed to parse engine output").WithDetail(src.RunID)
	}
	if len(poses) == 0 {
		return nil, errors.MalformedOutput("engine output holds no poses").WithDetail(src.RunID)
	}
	return poses, nil
}

// Sniff guesses the format tag of raw output, returning "" when unsure.
func Sniff(data []byte) string {
	switch {
	case bytes.Contains(data, []byte("REMARK VINA RESULT")),
		bytes.Contains(data, []byte("\nMODEL")), bytes.HasPrefix(data, []byte("MODEL")):
		return FormatPDBQT
	case bytes.Contains(data, []byte("$$$$")), bytes.Contains(data, []byte("M  END")):
		return FormatSDF
	}
	return ""
}

//Personal.AI order the ending
