package talk_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/book-expert/yukkuri-service/internal/talk"
	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("JST", 9*60*60)
	stamp := time.Date(2024, time.March, 5, 16, 7, 8, 9_012_345, jst)

	assert.Equal(t, "yukkuri-20240305070708009012.wav", talk.Filename(stamp))
}

func TestFilename_Pattern(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^yukkuri-\d{20}\.wav$`)

	assert.Regexp(t, pattern, talk.Filename(time.Now()))
	assert.Regexp(t, pattern, talk.Filename(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)))
}
