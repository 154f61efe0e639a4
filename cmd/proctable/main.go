package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-process-table-ui/internal/backend"
	"go-process-table-ui/internal/config"
	"go-process-table-ui/internal/connectors/processapi"
	"go-process-table-ui/internal/connectors/processstore"
	"go-process-table-ui/internal/generator"
	httpapi "go-process-table-ui/internal/http"
	"go-process-table-ui/internal/logging"
	"go-process-table-ui/internal/orchestrator"
	"go-process-table-ui/internal/render"
	"go-process-table-ui/internal/render/term"
	"go-process-table-ui/internal/tui"
)

var version = "dev"

var (
	cfg    config.Config
	logger *zap.Logger

	flagAPI      string
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "proctable",
		Short: "Generate and view process tables",
		Long: `proctable serves randomly generated process tables and renders them
in a browser or a terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.FromEnv()
			if cmd.Flags().Changed("api") {
				cfg.APIBaseURL = flagAPI
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}

			var err error
			logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "Process backend base URL (overrides APP_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides APP_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(backendCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var (
		flagListen      string
		flagWithBackend bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = flagListen
			}

			srv, err := httpapi.NewServer(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}

			ctx, stop := signalContext()
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			if flagWithBackend {
				app, closeStore, err := newBackendApp()
				if err != nil {
					return err
				}
				defer closeStore()
				g.Go(func() error {
					logger.Info("starting backend", zap.String("addr", cfg.BackendListenAddr))
					return backend.Serve(ctx, app, cfg.BackendListenAddr, cfg.ShutdownTimeout)
				})
			}

			g.Go(func() error {
				logger.Info("starting viewer", zap.String("version", version), zap.String("addr", cfg.ListenAddr), zap.String("api", cfg.APIBaseURL))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&flagListen, "listen", "", "Viewer listen address (overrides APP_LISTEN_ADDR)")
	cmd.Flags().BoolVar(&flagWithBackend, "with-backend", false, "Also run the backend in this process")
	return cmd
}

func backendCmd() *cobra.Command {
	var flagListen, flagStoreDriver, flagStoreDSN string

	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the process table backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.BackendListenAddr = flagListen
			}
			if cmd.Flags().Changed("store-driver") {
				cfg.StoreDriver = flagStoreDriver
			}
			if cmd.Flags().Changed("store-dsn") {
				cfg.StoreDSN = flagStoreDSN
			}

			app, closeStore, err := newBackendApp()
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, stop := signalContext()
			defer stop()
			logger.Info("starting backend", zap.String("version", version), zap.String("addr", cfg.BackendListenAddr))
			return backend.Serve(ctx, app, cfg.BackendListenAddr, cfg.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&flagListen, "listen", "", "Backend listen address (overrides APP_BACKEND_LISTEN_ADDR)")
	cmd.Flags().StringVar(&flagStoreDriver, "store-driver", "", "Store driver: sqlite or mysql")
	cmd.Flags().StringVar(&flagStoreDSN, "store-dsn", "", "Store DSN")
	return cmd
}

// newBackendApp opens the configured store and builds the backend app.
func newBackendApp() (*fiber.App, func(), error) {
	store, err := processstore.Open(cfg.StoreDriver, cfg.StoreDSN, cfg.StoreQueryTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("store opened", zap.String("driver", store.Driver()))
	app := backend.NewApp(backend.NewHandler(store, generator.New(nil, generator.DefaultLimits), logger.Named("backend")))
	return app, func() { _ = store.Close() }, nil
}

func showCmd() *cobra.Command {
	var flagPlain, flagJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Fetch and print the current process table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, func(o *orchestrator.Orchestrator, ctx context.Context) error {
				return o.DisplayCurrentData(ctx)
			}, flagPlain, flagJSON)
		},
	}

	cmd.Flags().BoolVar(&flagPlain, "plain", false, "Print without styling or borders")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print the render state as JSON")
	return cmd
}

func generateCmd() *cobra.Command {
	var flagPlain, flagJSON bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate new processes and print the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, func(o *orchestrator.Orchestrator, ctx context.Context) error {
				return o.RegenerateAndDisplay(ctx)
			}, flagPlain, flagJSON)
		},
	}

	cmd.Flags().BoolVar(&flagPlain, "plain", false, "Print without styling or borders")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print the render state as JSON")
	return cmd
}

// runOnce runs one cycle against a terminal printer. Banners stream to
// stderr; the table goes to stdout.
func runOnce(cmd *cobra.Command, cycle func(*orchestrator.Orchestrator, context.Context) error, plain, asJSON bool) error {
	live := cmd.ErrOrStderr()
	if asJSON {
		live = nil
	}
	printer := term.NewPrinter(live)
	renderer := render.NewRenderer(printer, render.Options{HideWhileLoading: cfg.HideWhileLoading})
	o := orchestrator.New(processapi.NewClient(cfg.APIBaseURL, cfg.APITimeout), renderer, logger.Named("orchestrator"), orchestrator.Options{})
	defer o.Close()

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.ActionTimeout)
	defer cancel()

	err := cycle(o, ctx)

	out := cmd.OutOrStdout()
	switch {
	case asJSON:
		data, jerr := json.MarshalIndent(renderer.State(), "", "  ")
		if jerr != nil {
			return jerr
		}
		_, _ = fmt.Fprintln(out, string(data))
	case plain:
		_, _ = fmt.Fprint(out, printer.PlainString())
	default:
		_ = printer.Flush(out)
	}
	return err
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and regenerate the process table interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The alt screen owns the terminal; keep logs quiet.
			logger = zap.NewNop()

			printer := term.NewPrinter(nil)
			renderer := render.NewRenderer(printer, render.Options{HideWhileLoading: cfg.HideWhileLoading})
			o := orchestrator.New(processapi.NewClient(cfg.APIBaseURL, cfg.APITimeout), renderer, logger, orchestrator.Options{
				ResyncDelay:   cfg.ResyncDelay,
				ResyncTimeout: cfg.ActionTimeout,
				SingleFlight:  true,
			})
			defer o.Close()

			ctx, stop := signalContext()
			defer stop()
			return tui.Run(ctx, o, renderer, printer, cfg.ActionTimeout)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
