// Command contract-form fills in a rental contract interactively and saves
// the fillable document, optionally with a print ready copy next to it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-rental-contract/internal/contract"
	"github.com/a3tai/mcp-rental-contract/internal/delivery"
	"github.com/a3tai/mcp-rental-contract/internal/document"
	"github.com/a3tai/mcp-rental-contract/internal/fields"
	"github.com/a3tai/mcp-rental-contract/internal/logging"
)

type options struct {
	OutputDir string
	From      string
	Finalize  bool
	Print     bool
	PrintCmd  string
	LogLevel  string
}

func parseFlags(args []string) (options, error) {
	opts := options{}
	fs := pflag.NewFlagSet("contract-form", pflag.ContinueOnError)
	fs.StringVar(&opts.OutputDir, "output-dir", "sozlesmeler", "Directory the contract is saved to")
	fs.StringVar(&opts.From, "from", "", "Existing contract PDF to start from")
	fs.BoolVar(&opts.Finalize, "finalize", false, "Also save a flattened copy for printing")
	fs.BoolVar(&opts.Print, "print", false, "Send the flattened copy to the printer")
	fs.StringVar(&opts.PrintCmd, "print-command", delivery.DefaultPrintCommand, "Command used to print")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// session carries what one run of the form needs.
type session struct {
	opts    options
	prompt  prompter
	printer delivery.Printer
	out     io.Writer
	log     zerolog.Logger
	now     func() time.Time
}

func (s *session) run(ctx context.Context) error {
	docs, err := document.DefaultConfig(s.log)
	if err != nil {
		return err
	}
	sink, err := delivery.NewDirSink(s.opts.OutputDir, s.log)
	if err != nil {
		return err
	}

	var start fields.Schema
	if s.opts.From != "" {
		start, err = s.load(ctx, docs)
		if err != nil {
			return err
		}
	}

	schema, err := fill(s.prompt, docs.Layout, start)
	if err != nil {
		return err
	}

	if err := schema.Validate(); err != nil {
		fmt.Fprintf(s.out, "Uyarı: %v\n", err)
		ok, err := s.prompt.Confirm("Eksik veya hatalı alanlarla kaydedilsin mi?", false)
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	doc, err := document.NewBuilder(docs).Build(ctx, schema)
	if err != nil {
		return err
	}
	today := s.now().UTC()
	name := delivery.Filename(contract.DocumentKind, schema.TenantName, today)
	loc, err := sink.Save(ctx, name, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Sözleşme kaydedildi: %s\n", loc.Path)

	if !s.opts.Finalize && !s.opts.Print {
		return nil
	}
	flat, err := document.NewPreparer(docs).Flatten(ctx, doc)
	if err != nil {
		return err
	}
	if s.opts.Finalize {
		name := delivery.Filename(contract.DocumentKind+"-baski", schema.TenantName, today)
		loc, err := sink.Save(ctx, name, flat)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Baskıya hazır kopya: %s\n", loc.Path)
	}
	if s.opts.Print {
		if err := s.printer.Print(ctx, flat); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Yazıcıya gönderildi.")
	}
	return nil
}

// load reads the starting values from an existing document.
func (s *session) load(ctx context.Context, docs document.Config) (fields.Schema, error) {
	data, err := os.ReadFile(s.opts.From)
	if err != nil {
		return fields.Schema{}, fmt.Errorf("failed to read %s: %w", s.opts.From, err)
	}
	schema, mismatches, err := document.NewExtractor(docs).Extract(ctx, data)
	if err != nil {
		return fields.Schema{}, err
	}
	for _, m := range mismatches {
		fmt.Fprintf(s.out, "Atlandı: %s\n", m)
	}
	return schema, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Level: opts.LogLevel, Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := &session{
		opts:    opts,
		prompt:  surveyPrompter{},
		printer: delivery.NewCommandPrinter(opts.PrintCmd, nil, logger.Logger),
		out:     os.Stdout,
		log:     logger.Logger,
		now:     time.Now,
	}
	if err := s.run(ctx); err != nil {
		if errors.Is(err, errAborted) {
			fmt.Fprintln(os.Stderr, "İptal edildi.")
		} else {
			logger.Error().Err(err).Msg("contract form failed")
		}
		logger.Close()
		stop()
		os.Exit(1)
	}
}
