package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/client"
	"github.com/book-expert/yukkuri-service/internal/talk"
)

// Flag names.
const (
	flagServer        = "server"
	flagText          = "text"
	flagNative        = "native"
	flagOutput        = "output"
	flagCheckLicenses = "check-licenses"
	flagTimeout       = "timeout"
)

// Flag descriptions.
const (
	flagServerDesc        = "Base URL of the yukkuri-service"
	flagTextDesc          = "Text to speak"
	flagNativeDesc        = "Treat --text as phonetic (AquesTalk) notation and skip kanji conversion"
	flagOutputDesc        = "Output file path (.wav); defaults to the name suggested by the server"
	flagCheckLicensesDesc = "Print the license key status and exit"
	flagTimeoutDesc       = "Request timeout"
	flagParamDesc         = "Synthesis parameter %s (integer, empty to omit)"
)

const (
	defaultServer  = "http://127.0.0.1:8080"
	defaultTimeout = 60 * time.Second
	logFileName    = "yukkuri-client.log"
)

var errTextRequired = errors.New("either --text or --check-licenses must be provided")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server        string
	text          string
	native        bool
	output        string
	checkLicenses bool
	timeout       time.Duration
	params        map[string]*string
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

// run is the main application entry point, returning an error on failure.
func run(args []string, stdout io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	appLog, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLog.Close()

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	httpClient := client.NewHTTPClient(flags.server, flags.timeout)

	if flags.checkLicenses {
		return printLicenses(ctx, httpClient, appLog, stdout)
	}

	if flags.text == "" {
		return errTextRequired
	}

	return speak(ctx, httpClient, appLog, flags, stdout)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	fs := flag.NewFlagSet("yukkuri-client", flag.ContinueOnError)

	flags := appFlags{params: make(map[string]*string, len(talk.SynthesisParams))}
	fs.StringVar(&flags.server, flagServer, defaultServer, flagServerDesc)
	fs.StringVar(&flags.text, flagText, "", flagTextDesc)
	fs.BoolVar(&flags.native, flagNative, false, flagNativeDesc)
	fs.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	fs.BoolVar(&flags.checkLicenses, flagCheckLicenses, false, flagCheckLicensesDesc)
	fs.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)

	for _, name := range talk.SynthesisParams {
		flags.params[name] = fs.String(name, "", fmt.Sprintf(flagParamDesc, name))
	}

	err := fs.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

func printLicenses(ctx context.Context, httpClient *client.HTTPClient, appLog *logger.Logger, stdout io.Writer) error {
	status, err := httpClient.CheckLicenses(ctx)
	if err != nil {
		appLog.Error("License check failed: %v", err)

		return err
	}

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(stdout, "%s: %t\n", name, status[name])
	}

	return nil
}

func speak(
	ctx context.Context,
	httpClient *client.HTTPClient,
	appLog *logger.Logger,
	flags appFlags,
	stdout io.Writer,
) error {
	params := make(map[string]string, len(flags.params))
	for name, value := range flags.params {
		params[name] = *value
	}

	audio, err := httpClient.Talk(ctx, client.TalkRequest{
		Text:   flags.text,
		Native: flags.native,
		Params: params,
	})
	if err != nil {
		appLog.Error("Failed to process text: %v", err)

		return fmt.Errorf("failed to process text: %w", err)
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = audio.Filename
	}

	if outputPath == "" {
		outputPath = "yukkuri.wav"
	}

	err = os.WriteFile(outputPath, audio.Data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	appLog.Info("Successfully generated speech: %s", outputPath)
	fmt.Fprintf(stdout, "Generated: %s\n", outputPath)

	return nil
}
