package structure

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// Parse decodes a structure of the given format.
func Parse(r io.Reader, format Format, id string) (*Structure, error) {
	switch format {
	case FormatPDB, FormatPDBQT:
		return ParsePDB(r, id, format)
	case FormatSDF:
		return ParseSDF(r, id)
	case FormatMOL2:
		return ParseMOL2(r, id)
	default:
		return nil, errors.New(errors.CodeUnsupportedFormat, "unsupported structure format").WithDetail(string(format))
	}
}

// ParseFile opens path, detects its format from the extension and parses it.
// The structure id is the file name without extension.
func ParseFile(path string) (*Structure, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "structure file not found").WithDetail(path)
		}
		return nil, errors.Wrap(err, errors.CodeInvalidStructure, "failed to open structure file").WithDetail(path)
	}
	defer f.Close()
	return Parse(f, format, Stem(path))
}

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

//Personal.AI order the ending
