package aquestalk

import (
	"bytes"
	"errors"
	"fmt"
)

const wavHeaderSize = 12

// ErrNotWAV is returned when an engine produces something other than a RIFF/WAVE container.
var ErrNotWAV = errors.New("engine output is not a WAV container")

// CheckWAV verifies the RIFF/WAVE signature of an engine's output.
func CheckWAV(data []byte) error {
	if len(data) < wavHeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrNotWAV, len(data))
	}

	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return fmt.Errorf("%w: bad signature %q", ErrNotWAV, data[:wavHeaderSize])
	}

	return nil
}
