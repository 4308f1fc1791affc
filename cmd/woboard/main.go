package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"woboard/internal"
	"woboard/internal/board"
	"woboard/internal/config"
	"woboard/internal/connectors"
	"woboard/internal/listener"
	"woboard/internal/logger"
	"woboard/internal/pipeline"
	"woboard/internal/server"
	"woboard/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if err := run(cfg, log, os.Args[1], os.Args[2:]); err != nil {
		switch {
		case errors.Is(err, pflag.ErrHelp):
			return
		case errors.Is(err, errUsage):
			usage()
		default:
			log.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("unknown command")

func run(cfg config.Config, log zerolog.Logger, cmd string, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// extract never touches the board or the store.
	if cmd == "extract" {
		return runExtract(cfg, args)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	client := board.NewClient(cfg, log)
	processor := pipeline.NewProcessor(client, db, cfg, log)

	switch cmd {
	case "serve":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		port := fs.IntP("port", "p", cfg.Port, "listen port")
		if err := fs.Parse(args); err != nil {
			return err
		}
		cfg.Port = *port
		return server.New(processor, cfg, log).ListenAndServe(ctx)
	case "run":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		input := fs.StringP("input", "i", cfg.PDFPath, "document path (pdf|eml|html|txt)")
		kind := fs.StringP("type", "t", "", "pdf|email|html|text, inferred from the extension when empty")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if strings.TrimSpace(*input) == "" {
			return errors.New("--input is required")
		}
		if err := cfg.RequireBoard(); err != nil {
			return err
		}
		doc, err := pipeline.DecodeFile(*input, internal.DocumentKind(*kind))
		if err != nil {
			return err
		}
		if doc.Kind == internal.KindEmail {
			outcomes, err := processor.ProcessEmail(ctx, doc.Name, doc.Blob)
			for _, o := range outcomes {
				printOutcome(o)
			}
			return err
		}
		out, err := processor.Process(ctx, doc)
		if err != nil {
			return err
		}
		printOutcome(out)
	case "board:whoami":
		if err := cfg.Require("MONDAY_API_KEY", cfg.MondayAPIKey); err != nil {
			return err
		}
		me, err := client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("id=%s name=%s email=%s\n", me.ID, me.Name, me.Email)
	case "mail:fetch":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		if err := fs.Parse(args); err != nil {
			return err
		}
		conn, err := connectors.NewMailConnector(ctx, cfg, normalizeProvider(*provider))
		if err != nil {
			return err
		}
		result, err := connectors.NewFetchService(db, cfg.RawMailDir, conn, log).FetchAndStore(ctx, *label, *max)
		if err != nil {
			return err
		}
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d new=%d\n", *provider, result.Fetched, result.Stored, result.New)
	case "mail:process":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		messageID := fs.String("messageId", "", "specific provider message id")
		batch := fs.Int("batch", cfg.MailListenerProcessBatch, "batch size")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := cfg.RequireBoard(); err != nil {
			return err
		}
		if strings.TrimSpace(*messageID) != "" {
			outcomes, err := processor.ProcessByProviderMessageID(ctx, normalizeProvider(*provider), *messageID)
			for _, o := range outcomes {
				printOutcome(o)
			}
			return err
		}
		docs, created, err := processor.ProcessPending(ctx, *batch, normalizeProvider(*provider))
		if err != nil {
			return err
		}
		fmt.Printf("processed pending documents=%d created=%d\n", docs, created)
	case "mail:listen":
		if err := cfg.RequireBoard(); err != nil {
			return err
		}
		conn, err := connectors.NewMailConnector(ctx, cfg, normalizeProvider(cfg.MailListenerProvider))
		if err != nil {
			return err
		}
		fetcher := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		return listener.NewService(fetcher, processor, db, cfg, log).Run(ctx)
	case "export:xlsx":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		documentID := fs.Int("documentId", 0, "internal document id, 0 exports everything")
		out := fs.StringP("out", "o", "", "output xlsx path")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if strings.TrimSpace(*out) == "" {
			return errors.New("--out is required")
		}
		rows, err := db.GetExportRows(*documentID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no export rows for documentId=%d", *documentID)
		}
		if err := pipeline.ExportItemsToXLSX(rows, *out); err != nil {
			return err
		}
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	default:
		return errUsage
	}
	return nil
}

func runExtract(cfg config.Config, args []string) error {
	fs := pflag.NewFlagSet("extract", pflag.ContinueOnError)
	input := fs.StringP("input", "i", "", "input file path, or the raw text for --type=text")
	kind := fs.StringP("type", "t", "", "pdf|email|html|text, inferred from the extension when empty")
	output := fs.StringP("output", "o", "", "optional xlsx path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("--input is required")
	}

	rec, err := pipeline.ExtractFromInput(internal.DocumentKind(*kind), *input, cfg.ProjectName)
	if err != nil {
		return err
	}
	if *output != "" {
		row := internal.ItemExportRow{Part: rec.Display(internal.FieldWOFile), Fields: rec.Map(), Status: "extracted"}
		if err := pipeline.ExportItemsToXLSX([]internal.ItemExportRow{row}, *output); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func printOutcome(o pipeline.Outcome) {
	status := "created"
	switch {
	case o.AlreadyCreated:
		status = "already_created"
	case o.ItemID == "":
		status = "failed"
	}
	fmt.Printf("part=%s status=%s item=%s trace=%s workOrder=%s\n", o.Part, status, o.ItemID, o.TraceID, o.Record.Display(internal.FieldWorkOrder))
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func usage() {
	fmt.Println("usage: woboard <command>")
	fmt.Println("commands:")
	fmt.Println("  serve [--port=3000]")
	fmt.Println("  run --input=./wo.pdf [--type=pdf|email|html|text]")
	fmt.Println("  extract --input=... [--type=pdf|email|html|text] [--output=...xlsx]")
	fmt.Println("  board:whoami")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx [--documentId=1] --out=./out/result.xlsx")
}
