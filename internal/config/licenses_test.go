package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/yukkuri-service/internal/config"
	"github.com/book-expert/yukkuri-service/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRegistrar is a mock implementation of the LicenseRegistrar interface.
type mockRegistrar struct {
	rejectProduct string
	registered    map[string]string
}

func (m *mockRegistrar) SetLicenseKey(product, key string) error {
	if product == m.rejectProduct {
		return os.ErrInvalid
	}

	m.registered[product] = key

	return nil
}

func TestParseLicenses_Status(t *testing.T) {
	t.Parallel()

	licenses, err := config.ParseLicenses([]byte(`{"usr_key": "abc", "dev_key": ""}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"usr_key": true, "dev_key": false}, licenses.Status())
	assert.Equal(t, 2, licenses.Len())
}

func TestParseLicenses_Truthiness(t *testing.T) {
	t.Parallel()

	testCases := map[string]bool{
		`"x"`:      true,
		`""`:       false,
		`1`:        true,
		`0`:        false,
		`0.0`:      false,
		`true`:     true,
		`false`:    false,
		`null`:     false,
		`[]`:       false,
		`[0]`:      true,
		`{}`:       false,
		`{"a": 1}`: true,
	}

	for raw, expected := range testCases {
		licenses, err := config.ParseLicenses([]byte(`{"k2k_key": ` + raw + `}`))
		require.NoError(t, err, raw)
		assert.Equal(t, map[string]bool{"k2k_key": expected}, licenses.Status(), raw)
	}
}

func TestParseLicenses_IgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	licenses, err := config.ParseLicenses([]byte(`{"other": "x", "k2k_key": "y"}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"k2k_key": true}, licenses.Status())
}

func TestParseLicenses_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.ParseLicenses([]byte(`{"usr_key": `))
	require.Error(t, err)

	_, err = config.ParseLicenses([]byte(`["usr_key"]`))
	require.ErrorIs(t, err, config.ErrLicenseFileNotObject)
}

func TestLicensesKey(t *testing.T) {
	t.Parallel()

	licenses, err := config.ParseLicenses([]byte(`{"usr_key": "abc", "dev_key": "", "k2k_key": 12}`))
	require.NoError(t, err)

	key, ok := licenses.Key(config.KeyUser)
	assert.True(t, ok)
	assert.Equal(t, "abc", key)

	_, ok = licenses.Key(config.KeyDev)
	assert.False(t, ok)

	_, ok = licenses.Key(config.KeyKanji2Koe)
	assert.False(t, ok, "non-string values are never forwarded")
}

func TestLoadLicenses_DegradesToEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("not json"), 0o600))

	log := newTestLogger(t)

	assert.Empty(t, config.LoadLicenses(filepath.Join(dir, "missing.json"), log).Status())
	assert.Empty(t, config.LoadLicenses(broken, log).Status())
}

func TestLoadLicenses_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dev_key": "d"}`), 0o600))

	licenses := config.LoadLicenses(path, newTestLogger(t))
	assert.Equal(t, map[string]bool{"dev_key": true}, licenses.Status())
}

func TestLicensesRegister(t *testing.T) {
	t.Parallel()

	licenses, err := config.ParseLicenses([]byte(`{"usr_key": "u", "dev_key": "", "k2k_key": "k"}`))
	require.NoError(t, err)

	registrar := &mockRegistrar{
		rejectProduct: core.ProductKanji2KoeDev,
		registered:    map[string]string{},
	}

	licenses.Register(registrar, newTestLogger(t))

	assert.Equal(t, map[string]string{core.ProductAquesTalkUser: "u"}, registrar.registered)
}
