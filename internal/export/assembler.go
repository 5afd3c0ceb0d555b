// Package export assembles received fragments into one downloadable artifact.
package export

import (
	"errors"
	"fmt"
	"os"

	"github.com/crogers2287/chatterbox-player/internal/fragment"
	"github.com/crogers2287/chatterbox-player/internal/observability"
)

// ErrEmptyExport is returned when a download is attempted with no fragments
var ErrEmptyExport = errors.New("no audio fragments to export")

// Assemble concatenates the raw bytes of all fragments in arrival order into
// a single buffer. The concatenation is byte-level: it assumes every
// fragment shares one container/codec, and no re-encoding or container
// repair is attempted. If the server changed encodings mid-stream the result
// may not be a valid single file.
func Assemble(frags []*fragment.Fragment) ([]byte, error) {
	if len(frags) == 0 {
		observability.RecordExport(false, 0)
		return nil, ErrEmptyExport
	}

	total := 0
	for _, f := range frags {
		total += len(f.Raw)
	}

	out := make([]byte, 0, total)
	for _, f := range frags {
		out = append(out, f.Raw...)
	}

	observability.RecordExport(true, len(out))
	return out, nil
}

// WriteFile assembles the fragments and writes the artifact to path
func WriteFile(path string, frags []*fragment.Fragment) error {
	data, err := Assemble(frags)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export to %s: %w", path, err)
	}
	return nil
}
