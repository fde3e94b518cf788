package aquestalk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmbeddedNUL indicates a string that cannot cross into the C libraries intact.
var ErrEmbeddedNUL = errors.New("string contains a NUL byte")

// CheckCString rejects strings that C would silently truncate at the first NUL.
func CheckCString(value string) error {
	if index := strings.IndexByte(value, 0); index >= 0 {
		return fmt.Errorf("%w at offset %d", ErrEmbeddedNUL, index)
	}

	return nil
}
