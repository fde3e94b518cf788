// Package talk turns talk requests into WAV audio.
//
// A request goes through RECEIVE (DecodeForm), PARSE (ParseRequest), CONVERT and
// SYNTHESIZE. Any failure on that path is answered by speaking FallbackPhrase
// instead, so a caller always gets audio unless the fallback itself fails.
package talk

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/core"
)

// FallbackPhrase is spoken when a request cannot be rendered ("this sentence
// cannot be spoken").
const FallbackPhrase = "このぶんしょうは、しゃべれません"

// Result is the audio produced for one request.
type Result struct {
	Audio []byte
	// Fallback is set when Audio is the fallback utterance.
	Fallback bool
	// Cause is the failure that triggered the fallback.
	Cause error
}

// Service runs the talk pipeline against a shared converter and synthesizer.
//
// The vendor converter is not documented as thread-safe, so every call into the
// converter is serialized; synthesizer calls are serialized the same way.
type Service struct {
	converter   core.KanjiConverter
	synthesizer core.Synthesizer
	log         *logger.Logger
	timeout     time.Duration

	convertMu    sync.Mutex
	synthesizeMu sync.Mutex
}

// NewService creates a new Service. A zero timeout leaves engine calls unbounded.
func NewService(
	converter core.KanjiConverter,
	synthesizer core.Synthesizer,
	log *logger.Logger,
	timeout time.Duration,
) *Service {
	return &Service{
		converter:    converter,
		synthesizer:  synthesizer,
		log:          log,
		timeout:      timeout,
		convertMu:    sync.Mutex{},
		synthesizeMu: sync.Mutex{},
	}
}

// TalkForm decodes a form body and renders it.
func (s *Service) TalkForm(ctx context.Context, contentType string, body io.Reader) (*Result, error) {
	return s.respond(ctx, func() (Request, error) {
		fields, err := DecodeForm(contentType, body)
		if err != nil {
			return Request{}, err
		}

		return ParseRequest(fields)
	})
}

// Talk renders already decoded fields.
func (s *Service) Talk(ctx context.Context, fields Fields) (*Result, error) {
	return s.respond(ctx, func() (Request, error) {
		return ParseRequest(fields)
	})
}

// respond is the single failure boundary: every error from parse, convert or
// synthesize ends in the fallback utterance. The returned error is non-nil only
// when the fallback fails too.
func (s *Service) respond(ctx context.Context, parse func() (Request, error)) (*Result, error) {
	audio, err := s.attempt(ctx, parse)
	if err == nil {
		return &Result{Audio: audio, Fallback: false, Cause: nil}, nil
	}

	s.log.Error("Talk request failed with %s, speaking fallback phrase: %v", Kind(err), err)

	audio, fallbackErr := s.fallback(ctx)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: %w (after %s: %v)", ErrFallbackFailed, fallbackErr, Kind(err), err)
	}

	return &Result{Audio: audio, Fallback: true, Cause: err}, nil
}

func (s *Service) attempt(ctx context.Context, parse func() (Request, error)) ([]byte, error) {
	req, err := parse()
	if err != nil {
		return nil, err
	}

	phonetic := req.Text
	if !req.Native {
		phonetic, err = s.convert(ctx, req.Text)
		if err != nil {
			return nil, err
		}
	}

	return s.synthesize(ctx, phonetic, req.Params)
}

// fallback runs detached from the caller's cancellation.
func (s *Service) fallback(ctx context.Context) ([]byte, error) {
	ctx = context.WithoutCancel(ctx)

	phonetic, err := s.convert(ctx, FallbackPhrase)
	if err != nil {
		return nil, err
	}

	return s.synthesize(ctx, phonetic, map[string]int{})
}

// bound limits one engine call. It is applied after the engine lock is held so
// that queueing behind other requests does not count against the limit.
func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) convert(ctx context.Context, text string) (phonetic string, err error) {
	s.convertMu.Lock()
	defer s.convertMu.Unlock()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: converter panic: %v", ErrConversion, r)
		}
	}()

	phonetic, err = s.converter.Convert(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConversion, err)
	}

	return phonetic, nil
}

func (s *Service) synthesize(ctx context.Context, phonetic string, params map[string]int) (audio []byte, err error) {
	s.synthesizeMu.Lock()
	defer s.synthesizeMu.Unlock()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: synthesizer panic: %v", ErrSynthesis, r)
		}
	}()

	audio, err = s.synthesizer.Synthesize(ctx, phonetic, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty waveform", ErrSynthesis)
	}

	return audio, nil
}
