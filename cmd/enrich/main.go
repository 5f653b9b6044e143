// Command enrich re-runs sentiment, category and geo enrichment for one
// stored complaint and prints the resulting row as JSON.
//
//	enrich -id 42
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"complaint-service/internal/app"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/config"
)

func main() {
	var id int64
	flag.Int64Var(&id, "id", 0, "ID of the complaint to enrich")
	flag.Parse()

	if id < 1 {
		fmt.Fprintln(os.Stderr, "enrich: -id must be a positive complaint ID")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(id); err != nil {
		fmt.Fprintf(os.Stderr, "enrich: %v\n", err)
		os.Exit(1)
	}
}

func run(id int64) error {
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Enrichment.EnrichByID(ctx, id); err != nil {
		return err
	}

	complaint, err := a.Storage.GetComplaint(ctx, id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(complaint)
}
