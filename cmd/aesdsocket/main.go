// Command aesdsocket stores newline-terminated packets received on TCP port
// 9000 and echoes the accumulated content back after each packet.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/luhtfiimanal/go-ringlog/internal/httpapi"
	"github.com/luhtfiimanal/go-ringlog/internal/server"
)

type flags struct {
	configPath string
	listen     string
	backend    string
	dataFile   string
	capacity   int
	httpListen string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "aesdsocket",
		Short:         "Store newline-terminated packets and echo them back",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(f.logLevel, f.logFormat)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
				return err
			}
			defer logger.Sync()

			cfg, err := loadConfig(f, cmd.Flags())
			if err != nil {
				logger.Error("invalid configuration", zap.Error(err))
				return err
			}
			if err := run(cmd.Context(), cfg, logger); err != nil {
				logger.Error("exiting", zap.Error(err))
				return err
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&f.listen, "listen", server.DefaultListen, "TCP listen address")
	fs.StringVar(&f.backend, "backend", server.BackendRing, "storage backend: ring or file")
	fs.StringVar(&f.dataFile, "data-file", server.DefaultDataFile, "data file for the file backend")
	fs.IntVar(&f.capacity, "capacity", 0, "ring entry slots (0 = config or default)")
	fs.StringVar(&f.httpListen, "http", "", "listen address of the inspection API (ring backend only)")
	fs.StringVar(&f.logFormat, "log-format", "console", "log encoding: console or json")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

// loadConfig reads the config file, then applies flags the user set
// explicitly.
func loadConfig(f flags, fs *pflag.FlagSet) (server.Config, error) {
	cfg, err := server.LoadConfig(f.configPath)
	if err != nil {
		return cfg, err
	}
	if fs.Changed("listen") {
		cfg.Listen = f.listen
	}
	if fs.Changed("backend") {
		cfg.Backend = f.backend
	}
	if fs.Changed("data-file") {
		cfg.DataFile = f.dataFile
	}
	if fs.Changed("http") {
		cfg.HTTP.Listen = f.httpListen
	}
	if fs.Changed("capacity") {
		if err := setRingCapacity(&cfg, f.capacity); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func newLogger(levelName, format string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	zapcfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	zapcfg.Encoding = format
	if format == "console" {
		zapcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapcfg.Level = zap.NewAtomicLevelAt(level)
	return zapcfg.Build()
}

func run(ctx context.Context, cfg server.Config, logger *zap.Logger) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
	defer stop()

	backend, err := server.NewBackend(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "create backend")
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			err = multierror.Append(err, errors.Wrap(cerr, "close backend"))
		}
	}()

	srv, err := server.New(cfg, backend, logger)
	if err != nil {
		return err
	}

	var httpSrv *http.Server
	if db, ok := backend.(*server.DeviceBackend); ok && cfg.HTTP.Listen != "" {
		httpSrv = &http.Server{
			Addr: cfg.HTTP.Listen,
			Handler: (&httpapi.Server{
				Dev:          db.Device,
				Logger:       logger.Named("http"),
				PollInterval: cfg.HTTP.PollInterval,
			}).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("inspection API listening", zap.String("addr", cfg.HTTP.Listen))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("inspection API stopped", zap.Error(err))
			}
		}()
	}

	serveErr := srv.ListenAndServe(ctx)
	if ctx.Err() != nil {
		logger.Info("Caught signal, exiting")
	}

	var result *multierror.Error
	if serveErr != nil {
		result = multierror.Append(result, serveErr)
	}
	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "shutdown inspection API"))
		}
	}
	return result.ErrorOrNil()
}
