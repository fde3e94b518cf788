package server_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/server"
	"github.com/book-expert/yukkuri-service/internal/talk"
	"github.com/stretchr/testify/require"
)

var errMockEngine = errors.New("mock engine error")

// mockEngine is a mock implementation of the KanjiConverter and Synthesizer interfaces.
type mockEngine struct {
	convertShouldFail  bool
	fallbackShouldFail bool

	mu          sync.Mutex
	conversions []string
	lastParams  map[string]int
}

func (m *mockEngine) Convert(_ context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversions = append(m.conversions, text)

	if text == talk.FallbackPhrase && m.fallbackShouldFail {
		return "", errMockEngine
	}

	if text != talk.FallbackPhrase && m.convertShouldFail {
		return "", errMockEngine
	}

	return "koe:" + text, nil
}

func (m *mockEngine) Synthesize(_ context.Context, phonetic string, params map[string]int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastParams = params

	return []byte("RIFF0000WAVE" + phonetic), nil
}

func (m *mockEngine) conversionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.conversions)
}

// mockLicenses is a mock implementation of the LicenseReporter interface.
type mockLicenses map[string]bool

func (m mockLicenses) Status() map[string]bool {
	return m
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "server-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

type testRig struct {
	engine  *mockEngine
	router  *server.Router
	docRoot string
}

func setupRouter(t *testing.T, licenses mockLicenses, maxBodyBytes int64) *testRig {
	t.Helper()

	log := newTestLogger(t)
	engine := &mockEngine{}
	service := talk.NewService(engine, engine, log, time.Second)
	docRoot := t.TempDir()

	return &testRig{
		engine:  engine,
		router:  server.NewRouter(service, licenses, docRoot, maxBodyBytes, log),
		docRoot: docRoot,
	}
}
