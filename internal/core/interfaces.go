// Package core defines the capability interfaces shared by the Yukkuri voice service.
//
// The speech engine and the kanji converter are vendor libraries; the service only
// talks to them through these interfaces.
package core

import "context"

// License product identifiers understood by LicenseRegistrar.
const (
	ProductAquesTalkUser = "aquestalk_usr"
	ProductAquesTalkDev  = "aquestalk_dev"
	ProductKanji2KoeDev  = "kanji2koe_dev"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// KanjiConverter turns natural Japanese text into the phonetic (koe) notation
// accepted by Synthesizer.
//
// Implementations are not required to be safe for concurrent use; callers that
// share a converter must serialize access.
type KanjiConverter interface {
	Convert(ctx context.Context, text string) (string, error)
}

// Synthesizer renders phonetic text into a WAV container. Params holds the numeric
// voice tuning values keyed by their form names (type, bas, spd, ...); a missing
// key means "use the voice preset".
type Synthesizer interface {
	Synthesize(ctx context.Context, phonetic string, params map[string]int) ([]byte, error)
}

// LicenseRegistrar hands opaque license keys to the vendor libraries.
type LicenseRegistrar interface {
	SetLicenseKey(product, key string) error
}

// Engine bundles every vendor capability the service needs.
type Engine interface {
	KanjiConverter
	Synthesizer
	LicenseRegistrar
	Close() error
}
