package repl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gemimg/gemimg/internal/imaging"
	"github.com/gemimg/gemimg/internal/log"
	"github.com/gemimg/gemimg/internal/security"
	"github.com/gemimg/gemimg/internal/session"
	"github.com/gemimg/gemimg/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&GenerateCommand{},
		&ModifyCommand{},
		&UploadCommand{},
		&ReuseCommand{},
		&SaveCommand{},
		&ShowCommand{},
		&TextCommand{},
		&UndoCommand{},
		&HistoryCommand{},
		&SessionCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// presentResult renders a result, stores the image in the session
// slot when one is present, and prints the model text.
func (r *REPL) presentResult(ctx context.Context, op, prompt string, result *models.GenerationResult) error {
	if result.HasImage() {
		if err := r.sessionMgr.EnsureSession(ctx); err != nil {
			return err
		}

		imagePath := r.sessionMgr.NewImagePath()
		if err := r.saver.Save(result.Image, imagePath); err != nil {
			return fmt.Errorf("failed to store image: %w", err)
		}

		iter := &session.Iteration{
			Operation:    op,
			Prompt:       prompt,
			ResponseText: result.Text,
			Model:        r.sessionMgr.Model(),
			ImagePath:    imagePath,
		}
		if err := r.sessionMgr.AddIteration(ctx, iter); err != nil {
			return fmt.Errorf("failed to record iteration: %w", err)
		}

		if err := r.displayer.Display(result.Image); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
		fmt.Fprintf(r.out, "Image ready. Download it with 'save' (%s).\n", imaging.DefaultFilename(op))
	} else {
		fmt.Fprintln(r.out, "The model returned no image.")
	}

	if result.HasText() {
		fmt.Fprintf(r.out, "Model response: %s\n", result.Text)
	}

	return nil
}

// GenerateCommand generates a new image from a prompt
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate a new image from a prompt" }
func (c *GenerateCommand) Usage() string       { return "generate <prompt>" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	prompt := strings.Join(args, " ")

	fmt.Fprintln(r.out, "Generating image...")
	r.logger.Info("generate", "prompt_len", len(prompt))

	result, err := r.generator.Generate(ctx, models.NewRequest(prompt))
	if err != nil {
		r.logger.Error("generate failed", log.Err(err))
		return err
	}

	return r.presentResult(ctx, session.OpGenerate, prompt, result)
}

// ModifyCommand modifies the staged upload or the last generated image
type ModifyCommand struct{}

func (c *ModifyCommand) Name() string      { return "modify" }
func (c *ModifyCommand) Aliases() []string { return []string{"mod", "m"} }
func (c *ModifyCommand) Description() string {
	return "Modify the uploaded or last generated image with an instruction"
}
func (c *ModifyCommand) Usage() string { return "modify <instruction>" }

func (c *ModifyCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	source, err := r.modifySource()
	if err != nil {
		return err
	}

	instruction := strings.Join(args, " ")

	fmt.Fprintln(r.out, "Modifying image...")
	r.logger.Info("modify", "prompt_len", len(instruction), "source_mime", source.MIMEType)

	result, err := r.generator.Modify(ctx, models.NewModifyRequest(instruction, source))
	if err != nil {
		r.logger.Error("modify failed", log.Err(err))
		return err
	}

	// A fresh result replaces the staged upload as the working image.
	r.upload = nil
	r.uploadPath = ""

	return r.presentResult(ctx, session.OpModify, instruction, result)
}

// modifySource resolves the image to modify: the staged upload wins,
// then the session slot. Neither available is NoUsableInput and no
// remote call is made.
func (r *REPL) modifySource() (*models.SourceImage, error) {
	if r.upload != nil {
		return r.upload, nil
	}

	if r.sessionMgr.HasImage() {
		source, err := imaging.LoadSource(r.sessionMgr.CurrentImagePath())
		if err != nil {
			return nil, fmt.Errorf("failed to load last generated image: %w", err)
		}
		return source, nil
	}

	return nil, fmt.Errorf("%w: upload an image with 'upload <path>' or generate one first", models.ErrNoUsableInput)
}

// UploadCommand stages an image from disk for the next modify
type UploadCommand struct{}

func (c *UploadCommand) Name() string        { return "upload" }
func (c *UploadCommand) Aliases() []string   { return []string{"up"} }
func (c *UploadCommand) Description() string { return "Upload a PNG or JPEG image to modify" }
func (c *UploadCommand) Usage() string       { return "upload <path>" }

func (c *UploadCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	source, err := imaging.LoadSource(args[0])
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedImageType) {
			return fmt.Errorf("%w (PNG and JPEG are accepted)", err)
		}
		return err
	}

	r.upload = source
	r.uploadPath = args[0]
	fmt.Fprintf(r.out, "Uploaded %s (%s); 'modify' will use it.\n", args[0], source.MIMEType)
	return nil
}

// ReuseCommand drops the staged upload in favor of the last generated image
type ReuseCommand struct{}

func (c *ReuseCommand) Name() string        { return "reuse" }
func (c *ReuseCommand) Aliases() []string   { return nil }
func (c *ReuseCommand) Description() string { return "Use the last generated image for the next modify" }
func (c *ReuseCommand) Usage() string       { return "reuse" }

func (c *ReuseCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if !r.sessionMgr.HasImage() {
		return fmt.Errorf("%w: nothing generated yet", models.ErrNoUsableInput)
	}

	r.upload = nil
	r.uploadPath = ""
	fmt.Fprintln(r.out, "Next modify will use the last generated image.")
	return nil
}

// SaveCommand downloads the current image as a PNG file
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"download", "s"} }
func (c *SaveCommand) Description() string { return "Download the current image as a PNG file" }
func (c *SaveCommand) Usage() string       { return "save [filename]" }

func (c *SaveCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if !r.sessionMgr.HasImage() {
		return fmt.Errorf("no image to save")
	}

	iter := r.sessionMgr.CurrentIteration()

	destPath := imaging.DefaultFilename(iter.Operation)
	if len(args) > 0 {
		destPath = args[0]
		if err := security.ValidateSavePath(destPath); err != nil {
			return fmt.Errorf("invalid save path: %w", err)
		}
	}

	data, err := os.ReadFile(iter.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	if err := r.saver.Save(&models.ResultImage{Data: data, MIMEType: imaging.Sniff(data)}, destPath); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Saved: %s\n", destPath)
	return nil
}

// ShowCommand re-renders the current image
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"view"} }
func (c *ShowCommand) Description() string { return "Display the current image" }
func (c *ShowCommand) Usage() string       { return "show" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if !r.sessionMgr.HasImage() {
		return fmt.Errorf("no image to display")
	}

	data, err := os.ReadFile(r.sessionMgr.CurrentImagePath())
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	return r.displayer.Display(&models.ResultImage{Data: data, MIMEType: imaging.Sniff(data)})
}

// TextCommand re-prints the model text for the current iteration
type TextCommand struct{}

func (c *TextCommand) Name() string        { return "text" }
func (c *TextCommand) Aliases() []string   { return nil }
func (c *TextCommand) Description() string { return "Show the model's text response for the current image" }
func (c *TextCommand) Usage() string       { return "text" }

func (c *TextCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if !r.sessionMgr.HasIteration() {
		return fmt.Errorf("no result yet")
	}

	text := r.sessionMgr.CurrentIteration().ResponseText
	if text == "" {
		fmt.Fprintln(r.out, "No text response.")
		return nil
	}
	fmt.Fprintf(r.out, "Model response: %s\n", text)
	return nil
}

// UndoCommand reverts to the previous iteration
type UndoCommand struct{}

func (c *UndoCommand) Name() string        { return "undo" }
func (c *UndoCommand) Aliases() []string   { return []string{"u", "back"} }
func (c *UndoCommand) Description() string { return "Revert to the previous image" }
func (c *UndoCommand) Usage() string       { return "undo" }

func (c *UndoCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	prev, err := r.sessionMgr.Undo(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Reverted to: %s\n", prev.Prompt)

	if prev.ImagePath != "" {
		data, err := os.ReadFile(prev.ImagePath)
		if err == nil {
			if err := r.displayer.Display(&models.ResultImage{Data: data, MIMEType: imaging.Sniff(data)}); err != nil {
				fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
			}
		}
	}

	return nil
}

// HistoryCommand shows the iteration history
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show iteration history" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	history, err := r.sessionMgr.History(ctx)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		fmt.Fprintln(r.out, "No history yet")
		return nil
	}

	currentID := ""
	if r.sessionMgr.HasIteration() {
		currentID = r.sessionMgr.CurrentIteration().ID
	}

	for i, iter := range history {
		marker := "  "
		if iter.ID == currentID {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s[%d] %s %s: %q\n",
			marker,
			i+1,
			session.FormatTimestamp(iter.Timestamp),
			iter.Operation,
			truncate(iter.Prompt, 50))
	}

	return nil
}

// SessionCommand manages sessions
type SessionCommand struct{}

func (c *SessionCommand) Name() string        { return "session" }
func (c *SessionCommand) Aliases() []string   { return []string{"sess"} }
func (c *SessionCommand) Description() string { return "Manage sessions (list, load, new, rename)" }
func (c *SessionCommand) Usage() string       { return "session <list|load|new|rename> [args]" }

func (c *SessionCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	subCmd := strings.ToLower(args[0])
	subArgs := args[1:]

	switch subCmd {
	case "list", "ls":
		return c.list(ctx, r)
	case "load":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: session load <id>")
		}
		return c.load(ctx, r, subArgs[0])
	case "new":
		name := ""
		if len(subArgs) > 0 {
			name = strings.Join(subArgs, " ")
		}
		return c.new(ctx, r, name)
	case "rename":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: session rename <name>")
		}
		return c.rename(ctx, r, strings.Join(subArgs, " "))
	default:
		return fmt.Errorf("unknown session command: %s", subCmd)
	}
}

func (c *SessionCommand) list(ctx context.Context, r *REPL) error {
	sessions, err := r.sessionMgr.ListSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No sessions found")
		return nil
	}

	currentID := ""
	if r.sessionMgr.HasSession() {
		currentID = r.sessionMgr.Current().ID
	}

	fmt.Fprintf(r.out, "%-8s  %-20s  %s\n", "ID", "Name", "Updated")
	fmt.Fprintln(r.out, strings.Repeat("-", 50))

	for _, sess := range sessions {
		marker := "  "
		if sess.ID == currentID {
			marker = "> "
		}
		name := sess.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(r.out, "%s%-6s  %-20s  %s\n",
			marker,
			sess.ID[:6],
			truncate(name, 20),
			session.FormatTimestamp(sess.UpdatedAt))
	}

	return nil
}

func (c *SessionCommand) load(ctx context.Context, r *REPL, id string) error {
	sessions, err := r.sessionMgr.ListSessions(ctx)
	if err != nil {
		return err
	}

	var fullID string
	for _, sess := range sessions {
		if strings.HasPrefix(sess.ID, id) {
			fullID = sess.ID
			break
		}
	}

	if fullID == "" {
		return fmt.Errorf("session not found: %s", id)
	}

	if err := r.sessionMgr.Load(ctx, fullID); err != nil {
		return err
	}

	sess := r.sessionMgr.Current()
	name := sess.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(r.out, "Loaded session: %s (%s)\n", name, sess.ID[:6])

	if r.sessionMgr.HasIteration() {
		iter := r.sessionMgr.CurrentIteration()
		fmt.Fprintf(r.out, "Current: %s - %q\n", iter.Operation, truncate(iter.Prompt, 50))
	}

	return nil
}

func (c *SessionCommand) new(ctx context.Context, r *REPL, name string) error {
	sess, err := r.sessionMgr.StartNew(ctx, name)
	if err != nil {
		return err
	}

	displayName := name
	if displayName == "" {
		displayName = "(unnamed)"
	}
	fmt.Fprintf(r.out, "Created new session: %s (%s)\n", displayName, sess.ID[:6])
	return nil
}

func (c *SessionCommand) rename(ctx context.Context, r *REPL, name string) error {
	if err := r.sessionMgr.RenameSession(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Session renamed to: %s\n", name)
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-12s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "               Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
