package delivery

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultPrintCommand is used when no print command is configured.
const DefaultPrintCommand = "lp"

// Printer hands a document to the platform's print facility.
type Printer interface {
	Print(ctx context.Context, doc []byte) error
}

// CommandPrinter spools the document to a transient file and runs a print
// command with the file path as its last argument.
type CommandPrinter struct {
	Command string
	Args    []string
	TempDir string

	log zerolog.Logger
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCommandPrinter returns a printer running command with args.
func NewCommandPrinter(command string, args []string, logger zerolog.Logger) *CommandPrinter {
	if command == "" {
		command = DefaultPrintCommand
	}
	return &CommandPrinter{
		Command: command,
		Args:    args,
		log:     logger.With().Str("printer", command).Logger(),
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Print submits doc. The spool file is removed whether or not the job was
// accepted.
func (p *CommandPrinter) Print(ctx context.Context, doc []byte) error {
	if len(doc) == 0 {
		return fail("print", ErrNoDocument)
	}
	if err := ctx.Err(); err != nil {
		return fail("print", err)
	}

	f, err := os.CreateTemp(p.TempDir, "kira-sozlesmesi-*.pdf")
	if err != nil {
		return fail("spool", err)
	}
	spool := f.Name()
	defer os.Remove(spool)

	if _, err := f.Write(doc); err != nil {
		_ = f.Close()
		return fail("spool", err)
	}
	if err := f.Close(); err != nil {
		return fail("spool", err)
	}

	run := p.run
	if run == nil {
		run = runCommand
	}
	args := append(append([]string{}, p.Args...), spool)
	out, err := run(ctx, p.Command, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			err = fmt.Errorf("%s: %w: %s", p.Command, err, msg)
		} else {
			err = fmt.Errorf("%s: %w", p.Command, err)
		}
		return fail("print", err)
	}

	p.log.Info().Int("bytes", len(doc)).Str("output", strings.TrimSpace(string(out))).Msg("print job submitted")
	return nil
}
