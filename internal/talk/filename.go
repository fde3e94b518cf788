package talk

import (
	"fmt"
	"time"
)

// Filename returns the attachment name for audio produced at t:
// yukkuri-YYYYMMDDHHMMSSffffff.wav in UTC.
func Filename(t time.Time) string {
	t = t.UTC()

	return fmt.Sprintf("yukkuri-%s%06d.wav", t.Format("20060102150405"), t.Nanosecond()/int(time.Microsecond))
}
