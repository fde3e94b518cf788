package talk

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

const mediaTypeMultipart = "multipart/form-data"

// Fields holds the first value sent for every form field name.
type Fields map[string]string

func (f Fields) add(name, value string) {
	if _, seen := f[name]; !seen {
		f[name] = value
	}
}

// DecodeForm reads a talk request body. multipart/form-data bodies are split with
// the boundary from contentType and decoded with its charset; anything else is
// treated as a URL-encoded query string in UTF-8 where undecodable bytes are
// dropped.
func DecodeForm(contentType string, body io.Reader) (Fields, error) {
	mediaType, params, parseErr := mime.ParseMediaType(contentType)
	if parseErr == nil && mediaType == mediaTypeMultipart {
		return decodeMultipart(body, params)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}

	return decodeURLEncoded(data), nil
}

// decodeURLEncoded splits on '&' only. A pair without '=' is skipped, and an
// invalid escape is kept as literal text.
func decodeURLEncoded(data []byte) Fields {
	fields := make(Fields)

	for _, pair := range strings.Split(string(data), "&") {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}

		fields.add(unescapeLenient(name), unescapeLenient(value))
	}

	return fields
}

// unescapeLenient decodes '+' and every well-formed %XX escape and copies
// anything else through unchanged. Invalid UTF-8 in the result is dropped.
func unescapeLenient(raw string) string {
	var decoded strings.Builder

	decoded.Grow(len(raw))

	for index := 0; index < len(raw); index++ {
		switch char := raw[index]; {
		case char == '+':
			decoded.WriteByte(' ')
		case char == '%' && index+2 < len(raw) && isHex(raw[index+1]) && isHex(raw[index+2]):
			decoded.WriteByte(unhex(raw[index+1])<<4 | unhex(raw[index+2]))
			index += 2
		default:
			decoded.WriteByte(char)
		}
	}

	return strings.ToValidUTF8(decoded.String(), "")
}

func isHex(char byte) bool {
	return ('0' <= char && char <= '9') || ('a' <= char && char <= 'f') || ('A' <= char && char <= 'F')
}

func unhex(char byte) byte {
	switch {
	case char >= 'a':
		return char - 'a' + 10
	case char >= 'A':
		return char - 'A' + 10
	default:
		return char - '0'
	}
}

func decodeMultipart(body io.Reader, params map[string]string) (Fields, error) {
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart body without boundary", ErrMalformedBody)
	}

	reader := multipart.NewReader(body, boundary)
	fields := make(Fields)

	for {
		part, err := reader.NextPart()
		// A clean end is a bare io.EOF; truncated bodies wrap it.
		if err == io.EOF {
			return fields, nil
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}

		name := part.FormName()
		if name == "" {
			_ = part.Close()

			continue
		}

		raw, readErr := io.ReadAll(part)
		_ = part.Close()

		if readErr != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrMalformedBody, name, readErr)
		}

		value, decodeErr := decodeCharset(raw, partCharset(part, params["charset"]))
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrMalformedBody, name, decodeErr)
		}

		fields.add(name, value)
	}
}

// partCharset prefers the charset declared on the part itself.
func partCharset(part *multipart.Part, fallback string) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if err == nil && params["charset"] != "" {
		return params["charset"]
	}

	return fallback
}

func decodeCharset(raw []byte, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return strings.ToValidUTF8(string(raw), ""), nil
	}

	encoding, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unsupported charset %q: %w", charset, err)
	}

	decoded, err := encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", charset, err)
	}

	return string(decoded), nil
}
