package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gemimg/gemimg/internal/adapter"
	"github.com/gemimg/gemimg/internal/config"
	"github.com/gemimg/gemimg/internal/display"
	"github.com/gemimg/gemimg/internal/imaging"
	"github.com/gemimg/gemimg/internal/keys"
	"github.com/gemimg/gemimg/internal/log"
	"github.com/gemimg/gemimg/internal/repl"
	"github.com/gemimg/gemimg/internal/session"
	"github.com/gemimg/gemimg/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagAPIKey      string
	flagModel       string
	flagOutput      string
	flagInteractive bool
	flagVerbose     bool
	flagTimeout     int
	flagConfig      string
)

type App struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	GetEnv func(string) string

	NewGenerator func(ctx context.Context, cfg adapter.Config) (repl.Generator, error)
	NewKeyStore  func() (*keys.Store, error)
	NewSaver     func() *imaging.Saver
}

func DefaultApp() *App {
	return &App{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		GetEnv: os.Getenv,
		NewGenerator: func(ctx context.Context, cfg adapter.Config) (repl.Generator, error) {
			return adapter.New(ctx, cfg)
		},
		NewKeyStore: keys.NewStore,
		NewSaver:    imaging.NewSaver,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gemimg [prompt]",
		Short: "Generate and modify images with Gemini",
		Long: `gemimg generates images from text prompts using the Gemini API and
lets you iterate on them with natural-language instructions.

Examples:
  gemimg "a sunset over mountains"
  gemimg -o sunset.png "a sunset over mountains"
  gemimg -i`,
		Args:          cobra.MaximumNArgs(1),
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagInteractive {
				return runInteractive(cmd.Context(), app)
			}
			if len(args) == 0 {
				return fmt.Errorf("a prompt is required (or use -i for interactive mode)")
			}
			return runGenerate(cmd.Context(), args[0], app)
		},
	}

	cmd.SetContext(signalContext())

	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key, then GEMINI_API_KEY)")
	cmd.Flags().StringVarP(&flagModel, "model", "m", "", "model to use")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename (default "+imaging.GeneratedFilename+")")
	cmd.Flags().BoolVarP(&flagInteractive, "interactive", "i", false, "start an interactive session")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "request timeout in seconds")
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to config file")

	cmd.AddCommand(newKeysCmd(app))

	return cmd
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

// setup resolves config, credentials and the generator shared by the
// one-shot and interactive paths.
func setup(ctx context.Context, app *App, allowPrompt bool) (repl.Generator, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, nil, err
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagTimeout > 0 {
		cfg.TimeoutSec = flagTimeout
	}

	level := log.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := log.New(app.Err, level)

	var prompt func() (string, error)
	if allowPrompt && stdinIsTerminal(app.In) {
		prompt = func() (string, error) {
			return keys.PromptKey(app.In, app.Err)
		}
	}

	key, source, err := keys.Resolve(flagAPIKey, app.GetEnv, prompt)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("resolved API key", "source", source, log.Secret(key))

	gen, err := app.NewGenerator(ctx, adapter.Config{
		APIKey: key,
		Model:  cfg.Model,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.TimeoutSec > 0 {
		gen = &timeoutGenerator{inner: gen, timeout: time.Duration(cfg.TimeoutSec) * time.Second}
	}
	return gen, cfg, logger, nil
}

func stdinIsTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runGenerate(ctx context.Context, prompt string, app *App) error {
	gen, _, _, err := setup(ctx, app, true)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.Out, "Generating image...")

	result, err := gen.Generate(ctx, models.NewRequest(prompt))
	if err != nil {
		return err
	}

	if result.HasImage() {
		path := flagOutput
		if path == "" {
			path = imaging.GeneratedFilename
		}
		if err := app.NewSaver().Save(result.Image, path); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Saved: %s\n", path)
	} else {
		fmt.Fprintln(app.Out, "The model returned no image.")
	}

	if result.HasText() {
		fmt.Fprintf(app.Out, "Model response: %s\n", result.Text)
	}
	return nil
}

func runInteractive(ctx context.Context, app *App) error {
	gen, cfg, logger, err := setup(ctx, app, true)
	if err != nil {
		return err
	}

	store, err := session.NewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	r := repl.New(&repl.Config{
		In:         app.In,
		Out:        app.Out,
		Err:        app.Err,
		Generator:  gen,
		SessionMgr: session.NewManager(store, cfg.Model),
		Displayer:  display.New(app.Out),
		Saver:      app.NewSaver(),
		Logger:     logger,
	})
	return r.Run(ctx)
}

// timeoutGenerator bounds each request without tying the REPL loop to
// the deadline.
type timeoutGenerator struct {
	inner   repl.Generator
	timeout time.Duration
}

func (g *timeoutGenerator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.Generate(ctx, req)
}

func (g *timeoutGenerator) Modify(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.Modify(ctx, req)
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the stored Gemini API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key]",
		Short: "Store an API key in keys.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				entered, err := keys.PromptKey(app.In, app.Out)
				if err != nil {
					return err
				}
				key = entered
			}
			if key == "" {
				return fmt.Errorf("no key provided")
			}

			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			if err := store.Set(key); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Stored key %s in %s\n", keys.MaskKey(key), store.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored API key (masked)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			key, err := store.Get()
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("no key stored; run 'gemimg keys set'")
			}
			fmt.Fprintf(app.Out, "%s: %s\n", keys.Provider, keys.MaskKey(key))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Stored key removed.")
			return nil
		},
	})

	return cmd
}
