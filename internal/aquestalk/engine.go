package aquestalk

import (
	"errors"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/core"
)

// Engine kinds accepted by Open.
const (
	KindExec   = "exec"
	KindNative = "native"
)

var (
	// ErrNativeUnavailable is returned when the binary was built without the
	// aquestalk tag or without cgo.
	ErrNativeUnavailable = errors.New("native AquesTalk engine not compiled in (build with -tags aquestalk)")
	// ErrUnknownEngineKind is returned by Open for an unsupported kind.
	ErrUnknownEngineKind = errors.New("unknown engine kind")
)

// Options selects and configures an engine.
type Options struct {
	Kind           string
	DictionaryPath string
	Exec           ExecConfig
}

// Open builds the engine named by opts.Kind.
func Open(opts Options, log *logger.Logger) (core.Engine, error) {
	switch opts.Kind {
	case KindExec, "":
		execCfg := opts.Exec
		execCfg.DictionaryPath = opts.DictionaryPath

		engine, err := NewExecEngine(execCfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create exec engine: %w", err)
		}

		return engine, nil
	case KindNative:
		engine, err := NewNativeEngine(opts.DictionaryPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create native engine: %w", err)
		}

		return engine, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngineKind, opts.Kind)
	}
}
