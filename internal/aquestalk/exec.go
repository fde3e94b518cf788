package aquestalk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/core"
)

// Environment variables through which license keys reach the vendor tools.
const (
	envUserKey      = "AQTK_USR_KEY"
	envDevKey       = "AQTK_DEV_KEY"
	envKanji2KoeKey = "AQK2K_DEV_KEY"
)

var (
	// ErrUnknownProduct is returned for a license product the engine does not know.
	ErrUnknownProduct = errors.New("unknown license product")
	// ErrBinaryPathEmpty indicates that a vendor tool path is not configured.
	ErrBinaryPathEmpty = errors.New("binary path cannot be empty")
	// ErrEmptyConversion indicates that the converter produced no output.
	ErrEmptyConversion = errors.New("converter produced no output")
)

var productEnv = map[string]string{
	core.ProductAquesTalkUser: envUserKey,
	core.ProductAquesTalkDev:  envDevKey,
	core.ProductKanji2KoeDev:  envKanji2KoeKey,
}

// ExecConfig names the vendor command-line tools.
type ExecConfig struct {
	SynthesizerPath string
	ConverterPath   string
	DictionaryPath  string
}

// ExecEngine implements core.Engine by running the vendor command-line tools, one
// process per call.
//
// The converter tool reads UTF-8 text on stdin and prints the phonetic string; it
// receives the dictionary with -d. The synthesizer tool reads the phonetic string
// on stdin, takes the resolved voice as flags and writes a WAV file to stdout.
type ExecEngine struct {
	config ExecConfig
	log    *logger.Logger

	mu   sync.RWMutex
	keys map[string]string
}

// NewExecEngine creates a new ExecEngine.
func NewExecEngine(cfg ExecConfig, log *logger.Logger) (*ExecEngine, error) {
	if cfg.SynthesizerPath == "" || cfg.ConverterPath == "" {
		return nil, ErrBinaryPathEmpty
	}

	return &ExecEngine{
		config: cfg,
		log:    log,
		mu:     sync.RWMutex{},
		keys:   make(map[string]string, len(productEnv)),
	}, nil
}

// SetLicenseKey stores the key; it is passed to every subsequent tool invocation.
func (e *ExecEngine) SetLicenseKey(product, key string) error {
	if _, ok := productEnv[product]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, product)
	}

	e.mu.Lock()
	e.keys[product] = key
	e.mu.Unlock()

	return nil
}

// Convert runs the converter tool over text.
func (e *ExecEngine) Convert(ctx context.Context, text string) (string, error) {
	args := []string{"-d", e.config.DictionaryPath}

	output, err := e.run(ctx, e.config.ConverterPath, args, text)
	if err != nil {
		return "", fmt.Errorf("kanji conversion failed: %w", err)
	}

	phonetic := strings.TrimSpace(string(output))
	if phonetic == "" {
		return "", ErrEmptyConversion
	}

	return phonetic, nil
}

// Synthesize runs the synthesizer tool and returns the WAV it writes.
func (e *ExecEngine) Synthesize(ctx context.Context, phonetic string, params map[string]int) ([]byte, error) {
	voice, err := ResolveVoice(params)
	if err != nil {
		return nil, err
	}

	audioData, err := e.run(ctx, e.config.SynthesizerPath, voice.Args(), phonetic)
	if err != nil {
		return nil, fmt.Errorf("synthesizer execution failed: %w", err)
	}

	checkErr := CheckWAV(audioData)
	if checkErr != nil {
		return nil, checkErr
	}

	return audioData, nil
}

// Close is a no-op; each call owns its own process.
func (e *ExecEngine) Close() error {
	return nil
}

func (e *ExecEngine) run(ctx context.Context, binary string, args []string, input string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	// #nosec G204 -- binary paths come from the service configuration
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), e.licenseEnv()...)

	err := cmd.Run()
	if err != nil {
		return nil, fmt.Errorf("%s: %w - output: %s", binary, err, strings.TrimSpace(stderr.String()))
	}

	if stderr.Len() > 0 && e.log != nil {
		e.log.Warn("%s wrote to stderr: %s", binary, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func (e *ExecEngine) licenseEnv() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	env := make([]string, 0, len(e.keys))
	for product, key := range e.keys {
		env = append(env, productEnv[product]+"="+key)
	}

	return env
}
