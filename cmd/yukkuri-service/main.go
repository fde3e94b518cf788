// main package for the yukkuri-service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/aquestalk"
	"github.com/book-expert/yukkuri-service/internal/config"
	"github.com/book-expert/yukkuri-service/internal/objectstore"
	"github.com/book-expert/yukkuri-service/internal/server"
	"github.com/book-expert/yukkuri-service/internal/talk"
	"github.com/book-expert/yukkuri-service/internal/worker"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// Flag names.
const (
	flagBind     = "bind"
	flagPort     = "port"
	flagConfig   = "config"
	flagLicenses = "licenses"
	flagRoot     = "root"
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	bind     string
	port     int
	config   string
	licenses string
	root     string
}

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func newRootCommand() *cobra.Command {
	var flags appFlags

	cmd := &cobra.Command{
		Use:           "yukkuri-service",
		Short:         "Yukkuri voice synthesis over HTTP",
		Long:          "Serves POST /talk (text to WAV), GET /check_licenses and static files from the document root.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.bind, flagBind, "b", "127.0.0.1", "Address to bind to")
	cmd.Flags().IntVarP(&flags.port, flagPort, "p", 8080, "Port to listen on")
	cmd.Flags().StringVarP(&flags.config, flagConfig, "c", "", "Path to a TOML configuration file")
	cmd.Flags().StringVar(&flags.licenses, flagLicenses, "", "Path to the license key JSON file")
	cmd.Flags().StringVar(&flags.root, flagRoot, "", "Directory served for static files")

	return cmd
}

// applyFlags lets explicitly set flags win over the file and the environment.
func applyFlags(cmd *cobra.Command, flags appFlags, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed(flagBind) {
		cfg.Server.Bind = flags.bind
	}

	if changed(flagPort) {
		cfg.Server.Port = flags.port
	}

	if changed(flagLicenses) {
		cfg.Licenses.Path = flags.licenses
	}

	if changed(flagRoot) {
		cfg.Server.DocumentRoot = flags.root
	}

	return cfg.Validate()
}

func serve(cmd *cobra.Command, flags appFlags) error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "yukkuri-service-bootstrap.log")
	if err != nil {
		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	// 2. Load configuration, then let explicit flags win
	cfg, err := config.Load(flags.config, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	err = applyFlags(cmd, flags, cfg)
	if err != nil {
		return err
	}

	// 3. Initialize the final logger based on the loaded configuration
	log, err := setupLogger(cfg.Paths.BaseLogsDir, "yukkuri-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return err
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	// 4. Dictionary and engine
	dictionary, err := aquestalk.ResolveDictionary(cfg.Engine.DictionaryPath, cfg.Engine.InstallDir)
	if err != nil {
		log.Error("No kanji dictionary available: %v", err)

		return fmt.Errorf("failed to locate dictionary: %w", err)
	}

	log.Info("Using dictionary %s", dictionary)

	engine, err := aquestalk.Open(aquestalk.Options{
		Kind:           cfg.Engine.Kind,
		DictionaryPath: dictionary,
		Exec: aquestalk.ExecConfig{
			SynthesizerPath: cfg.Engine.SynthesizerBinary,
			ConverterPath:   cfg.Engine.ConverterBinary,
			DictionaryPath:  dictionary,
		},
	}, log)
	if err != nil {
		log.Error("Failed to open %s engine: %v", cfg.Engine.Kind, err)

		return err
	}

	defer func() {
		closeErr := engine.Close()
		if closeErr != nil {
			log.Warn("Failed to close engine: %v", closeErr)
		}
	}()

	// 5. License keys
	licenses := config.LoadLicenses(cfg.Licenses.Path, log)
	licenses.Register(engine, log)

	service := talk.NewService(engine, engine, log, cfg.Engine.Timeout())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 6. Optional NATS worker
	workerDone, err := startWorker(ctx, cfg.NATS, service, log)
	if err != nil {
		return err
	}

	// 7. HTTP server
	srv := server.New(server.Config{
		Address:      cfg.Server.Address(),
		DocumentRoot: cfg.Server.DocumentRoot,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, service, licenses, log)

	err = srv.StartAsync()
	if err != nil {
		log.Error("Failed to start server: %v", err)
		stop()
		<-workerDone

		return err
	}

	log.System("yukkuri-service listening on http://%s", srv.Address())

	<-ctx.Done()

	log.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopErr := srv.Stop(shutdownCtx)
	if stopErr != nil {
		log.Error("Error during shutdown: %v", stopErr)
	}

	<-workerDone

	log.System("yukkuri-service stopped")

	return stopErr
}

// startWorker connects to NATS when configured and runs the talk worker until ctx
// ends. The returned channel closes once the worker and its connection are done.
func startWorker(ctx context.Context, cfg config.NATSConfig, service *talk.Service, log *logger.Logger) (<-chan struct{}, error) {
	done := make(chan struct{})

	if cfg.URL == "" {
		close(done)

		return done, nil
	}

	natsConnection, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	workerInstance, err := newWorker(natsConnection, cfg, service, log)
	if err != nil {
		natsConnection.Close()

		return nil, err
	}

	go func() {
		defer close(done)
		defer natsConnection.Close()

		runErr := workerInstance.Run(ctx)
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("NATS worker stopped: %v", runErr)
		}
	}()

	return done, nil
}

func newWorker(natsConnection *nats.Conn, cfg config.NATSConfig, service *talk.Service, log *logger.Logger) (*worker.NatsWorker, error) {
	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, objectstore.Options{
		Bucket: cfg.AudioObjectStoreBucket,
		TTL:    cfg.AudioTTL(),
		Memory: false,
	})
	if err != nil {
		return nil, err
	}

	workerInstance, err := worker.NewNatsWorker(natsConnection, cfg.TalkSubject, store, service, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS worker: %w", err)
	}

	return workerInstance, nil
}

func run() error {
	return newRootCommand().Execute()
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
