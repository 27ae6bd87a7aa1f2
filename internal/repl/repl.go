package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gemimg/gemimg/internal/display"
	"github.com/gemimg/gemimg/internal/imaging"
	"github.com/gemimg/gemimg/internal/log"
	"github.com/gemimg/gemimg/internal/session"
	"github.com/gemimg/gemimg/pkg/models"
)

// Generator is the adapter surface the REPL drives. Each call blocks
// until the remote model answers; the REPL handles one user action at
// a time.
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
	Modify(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
}

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	generator  Generator
	sessionMgr *session.Manager
	displayer  *display.Displayer
	saver      *imaging.Saver
	logger     *slog.Logger
	commands   map[string]Command
	running    bool

	// upload staged for the next modify; nil means modify falls back
	// to the last generated image.
	upload     *models.SourceImage
	uploadPath string
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Generator  Generator
	SessionMgr *session.Manager
	Displayer  *display.Displayer
	Saver      *imaging.Saver
	Logger     *slog.Logger
}

func New(cfg *Config) *REPL {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		generator:  cfg.Generator,
		sessionMgr: cfg.SessionMgr,
		displayer:  cfg.Displayer,
		saver:      cfg.Saver,
		logger:     logger,
		commands:   make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "gemimg interactive mode")
	fmt.Fprintln(r.out, "Generate an image with 'generate <prompt>', modify it with 'modify <instruction>'.")
	fmt.Fprintln(r.out, "Type 'help' for all commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	switch {
	case r.upload != nil:
		fmt.Fprintf(r.out, "gemimg [source: %s]> ", r.uploadPath)
	case r.sessionMgr.HasIteration():
		fmt.Fprintf(r.out, "gemimg (%s)> ", r.sessionMgr.CurrentIteration().Operation)
	default:
		fmt.Fprint(r.out, "gemimg> ")
	}
}

// parseCommand splits a line on spaces while honoring single and
// double quotes, so multi-word prompts need no escaping.
func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
