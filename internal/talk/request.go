package talk

import (
	"fmt"
	"strconv"
	"strings"
)

// Form field names with special meaning.
const (
	FieldText   = "text"
	FieldNative = "native"
)

// SynthesisParams is the whitelist of numeric fields forwarded to the synthesizer.
var SynthesisParams = []string{"type", "bas", "spd", "vol", "pit", "acc", "lmd", "fsc"}

// Request is a parsed talk request.
type Request struct {
	// Text is natural text, or phonetic text when Native is set.
	Text string
	// Native skips kanji conversion.
	Native bool
	// Params holds the non-empty whitelisted fields as integers.
	Params map[string]int
}

// ParseRequest validates fields. An absent or empty text field yields
// ErrMissingField; a non-integer whitelisted field yields ErrInvalidParameter.
// Empty whitelisted fields are dropped and unknown fields ignored.
func ParseRequest(fields Fields) (Request, error) {
	text := fields[FieldText]
	if text == "" {
		return Request{}, fmt.Errorf("%w: %s", ErrMissingField, FieldText)
	}

	params := make(map[string]int, len(SynthesisParams))

	for _, name := range SynthesisParams {
		raw, ok := fields[name]
		if !ok || raw == "" {
			continue
		}

		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Request{}, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, name, raw)
		}

		params[name] = value
	}

	return Request{
		Text:   text,
		Native: parseFlag(fields[FieldNative]),
		Params: params,
	}, nil
}

// parseFlag reads an integer flag; anything that is not a non-zero integer is false.
func parseFlag(raw string) bool {
	value, err := strconv.Atoi(strings.TrimSpace(raw))

	return err == nil && value != 0
}
