package talk

import "errors"

// Failure kinds of a talk attempt. Every one of them is answered with the fallback
// utterance; they are kept distinct for logging and tests only.
var (
	// ErrMalformedBody indicates a request body that could not be decoded at all.
	ErrMalformedBody = errors.New("malformed request body")
	// ErrMissingField indicates that the text field is absent or empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidParameter indicates a whitelisted parameter that is not an integer.
	ErrInvalidParameter = errors.New("invalid synthesis parameter")
	// ErrConversion indicates a kanji converter fault.
	ErrConversion = errors.New("kanji conversion failed")
	// ErrSynthesis indicates a synthesizer fault.
	ErrSynthesis = errors.New("speech synthesis failed")
	// ErrFallbackFailed indicates that even the fallback utterance could not be
	// produced. There is no further fallback.
	ErrFallbackFailed = errors.New("fallback utterance failed")
)

// Kind names the failure class of err for log lines.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMalformedBody):
		return "MalformedBody"
	case errors.Is(err, ErrMissingField):
		return "MissingField"
	case errors.Is(err, ErrInvalidParameter):
		return "InvalidParameter"
	case errors.Is(err, ErrConversion):
		return "ConversionError"
	case errors.Is(err, ErrSynthesis):
		return "SynthesisError"
	default:
		return "Unknown"
	}
}
