package talk_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/talk"
	"github.com/stretchr/testify/require"
)

var (
	errMockConvert    = errors.New("mock convert error")
	errMockSynthesize = errors.New("mock synthesize error")
)

const fallbackKoe = "koe(" + talk.FallbackPhrase + ")"

// mockConverter is a mock implementation of the KanjiConverter interface.
type mockConverter struct {
	convertShouldFail  bool
	fallbackShouldFail bool
	shouldPanic        bool
	delay              time.Duration
	// honorDeadline fails calls whose context expired during delay.
	honorDeadline bool

	mu         sync.Mutex
	calls      []string
	inFlight   atomic.Int32
	overlapped atomic.Bool
}

func (m *mockConverter) Convert(ctx context.Context, text string) (string, error) {
	if m.inFlight.Add(1) > 1 {
		m.overlapped.Store(true)
	}
	defer m.inFlight.Add(-1)

	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.honorDeadline && ctx.Err() != nil {
		return "", ctx.Err()
	}

	if text == talk.FallbackPhrase {
		if m.fallbackShouldFail {
			return "", errMockConvert
		}

		return fallbackKoe, nil
	}

	if m.shouldPanic {
		panic("converter crashed")
	}

	if m.convertShouldFail {
		return "", errMockConvert
	}

	return "koe(" + text + ")", nil
}

func (m *mockConverter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

type synthCall struct {
	phonetic string
	params   map[string]int
}

// mockSynthesizer is a mock implementation of the Synthesizer interface.
type mockSynthesizer struct {
	synthesizeShouldFail bool
	fallbackShouldFail   bool
	returnEmpty          bool

	mu    sync.Mutex
	calls []synthCall
}

func (m *mockSynthesizer) Synthesize(_ context.Context, phonetic string, params map[string]int) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, synthCall{phonetic: phonetic, params: params})
	m.mu.Unlock()

	if phonetic == fallbackKoe {
		if m.fallbackShouldFail {
			return nil, errMockSynthesize
		}

		return []byte("wav:" + phonetic), nil
	}

	if m.synthesizeShouldFail {
		return nil, errMockSynthesize
	}

	if m.returnEmpty {
		return []byte{}, nil
	}

	return []byte("wav:" + phonetic), nil
}

func (m *mockSynthesizer) lastCall(t *testing.T) synthCall {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.calls, "synthesizer was never called")

	return m.calls[len(m.calls)-1]
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "talk-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func setupService(t *testing.T) (*talk.Service, *mockConverter, *mockSynthesizer) {
	t.Helper()

	converter := &mockConverter{}
	synthesizer := &mockSynthesizer{}

	return talk.NewService(converter, synthesizer, newTestLogger(t), time.Second), converter, synthesizer
}
