package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/core"
	"github.com/valyala/fastjson"
)

// Recognized license key names.
const (
	KeyUser      = "usr_key"
	KeyDev       = "dev_key"
	KeyKanji2Koe = "k2k_key"
)

// LicenseProducts maps each license key name to the vendor product it unlocks, in
// registration order.
var LicenseProducts = []struct {
	Key     string
	Product string
}{
	{KeyUser, core.ProductAquesTalkUser},
	{KeyDev, core.ProductAquesTalkDev},
	{KeyKanji2Koe, core.ProductKanji2KoeDev},
}

// ErrLicenseFileNotObject indicates a license file whose top level is not a JSON object.
var ErrLicenseFileNotObject = errors.New("license file must contain a JSON object")

type licenseEntry struct {
	value  string
	truthy bool
}

// Licenses is the immutable set of license keys loaded at startup.
type Licenses struct {
	entries map[string]licenseEntry
}

// ParseLicenses reads a JSON object. Only the recognized key names are kept; each
// remembers whether its JSON value was truthy (non-empty string, non-zero number,
// true, non-empty array or object).
func ParseLicenses(data []byte) (Licenses, error) {
	var parser fastjson.Parser

	root, err := parser.ParseBytes(data)
	if err != nil {
		return Licenses{}, fmt.Errorf("failed to parse license file: %w", err)
	}

	object, err := root.Object()
	if err != nil {
		return Licenses{}, ErrLicenseFileNotObject
	}

	entries := make(map[string]licenseEntry, len(LicenseProducts))

	object.Visit(func(key []byte, value *fastjson.Value) {
		name := string(key)
		if !isLicenseKey(name) {
			return
		}

		entries[name] = licenseEntry{
			value:  string(value.GetStringBytes()),
			truthy: truthy(value),
		}
	})

	return Licenses{entries: entries}, nil
}

// LoadLicenses reads the license file at path. A missing or unparseable file
// yields an empty set; startup never fails because of it.
func LoadLicenses(path string, log *logger.Logger) Licenses {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("No license file loaded from %s: %v", path, err)

		return Licenses{entries: map[string]licenseEntry{}}
	}

	licenses, err := ParseLicenses(data)
	if err != nil {
		log.Warn("Ignoring license file %s: %v", path, err)

		return Licenses{entries: map[string]licenseEntry{}}
	}

	log.Info("Loaded %d license key(s) from %s", licenses.Len(), path)

	return licenses
}

// Len returns the number of recognized keys present.
func (l Licenses) Len() int {
	return len(l.entries)
}

// Status reports, for every key present, whether it holds a truthy value.
func (l Licenses) Status() map[string]bool {
	status := make(map[string]bool, len(l.entries))
	for name, entry := range l.entries {
		status[name] = entry.truthy
	}

	return status
}

// Key returns the secret stored under name when it is a non-empty string.
func (l Licenses) Key(name string) (string, bool) {
	entry, ok := l.entries[name]
	if !ok || entry.value == "" {
		return "", false
	}

	return entry.value, true
}

// Register hands every configured key to registrar. Rejections are logged and
// otherwise ignored.
func (l Licenses) Register(registrar core.LicenseRegistrar, log *logger.Logger) {
	for _, product := range LicenseProducts {
		key, ok := l.Key(product.Key)
		if !ok {
			continue
		}

		err := registrar.SetLicenseKey(product.Product, key)
		if err != nil {
			log.Warn("License key %s was not accepted for %s: %v", product.Key, product.Product, err)

			continue
		}

		log.Info("Registered license key %s for %s", product.Key, product.Product)
	}
}

func isLicenseKey(name string) bool {
	for _, product := range LicenseProducts {
		if product.Key == name {
			return true
		}
	}

	return false
}

func truthy(value *fastjson.Value) bool {
	switch value.Type() {
	case fastjson.TypeString:
		return len(value.GetStringBytes()) > 0
	case fastjson.TypeNumber:
		return value.GetFloat64() != 0
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeArray:
		return len(value.GetArray()) > 0
	case fastjson.TypeObject:
		object := value.GetObject()

		return object != nil && object.Len() > 0
	case fastjson.TypeFalse, fastjson.TypeNull:
		return false
	default:
		return false
	}
}
