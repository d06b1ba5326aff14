// Package main provides signinctl, a maintenance CLI for operators. It works
// on the same config, offline store and ledger as the desktop backend, for
// the cases where the shell is not running: inspecting pending sign-ins,
// flushing them, and spot-checking the remote ledger.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kimhsiao/signindesk/backend/internal/config"
	"github.com/kimhsiao/signindesk/backend/internal/delivery"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/offline"
	"github.com/kimhsiao/signindesk/backend/internal/sheets"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	logging.Init(os.Stderr, logging.LevelWarn)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	configPath := os.Getenv("SIGNINDESK_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("setting", "config.json")
	}
	cfg := config.Load(configPath)
	store := offline.NewStore(filepath.Join(cfg.DataDir, "pending_signins.jsonl"))

	var err error
	switch os.Args[1] {
	case "pending":
		err = runPending(os.Stdout, store)
	case "flush":
		err = runFlush(os.Stdout, cfg, store)
	case "fetch":
		err = runFetch(os.Stdout, cfg)
	case "version":
		fmt.Printf("signinctl v%s\n", Version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "signinctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: signinctl <pending|flush|fetch|version>")
}

// runPending lists the offline-stored sign-ins without touching them.
func runPending(out io.Writer, store *offline.Store) error {
	records, err := store.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no pending sign-ins")
		return nil
	}
	for i, rec := range records {
		fmt.Fprintf(out, "%3d  %-12s %-20s %s\n", i+1, rec.ID, rec.Name, rec.Event)
	}
	fmt.Fprintf(out, "%d pending\n", len(records))
	return nil
}

// runFlush replays the offline store against the remote ledger.
func runFlush(out io.Writer, cfg *config.Config, store *offline.Store) error {
	sink, err := newSink(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := delivery.NewReconciler(sink, store).Flush(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "flushed %d of %d pending sign-ins\n", result.Succeeded, result.Total)
	if remaining := result.Total - result.Succeeded; remaining > 0 {
		fmt.Fprintf(out, "%d still pending, run flush again\n", remaining)
	}
	return nil
}

// runFetch prints the remote ledger contents.
func runFetch(out io.Writer, cfg *config.Config) error {
	sink, err := newSink(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rows, err := sink.FetchRecords(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%-22s %-12s %-20s %s\n",
			row["timestamp"], row["id"], row["name"], row["event"])
	}
	fmt.Fprintf(out, "%d rows in %s\n", len(rows), strings.TrimSpace(cfg.Google.WorksheetName))
	return nil
}

func newSink(cfg *config.Config) (*sheets.Client, error) {
	token, err := sheets.LoadToken(cfg.Google.CredentialsPath)
	if err != nil {
		return nil, err
	}
	return sheets.NewClient(sheets.Options{
		Token:         token,
		SpreadsheetID: cfg.Google.SpreadsheetID,
		Worksheet:     cfg.Google.WorksheetName,
	}), nil
}
