package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/config"
	"github.com/jafarshop/variantcart/internal/repository/postgres"
	"github.com/jafarshop/variantcart/internal/service"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Only decode the file and report product/variant counts")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: go run cmd/import-products/main.go [--dry-run] <catalog.json>")
		fmt.Println(`The file must look like {"products": [{"id": "...", "variants": [...]}]}`)
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open catalog file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	catalog, err := service.DecodeCatalog(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode catalog: %v\n", err)
		os.Exit(1)
	}

	variants := 0
	for _, p := range catalog.Products {
		if p != nil {
			variants += len(p.Variants)
		}
	}
	fmt.Printf("Read %d product(s) with %d variant(s)\n", len(catalog.Products), variants)
	if *dryRun {
		return
	}

	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	report, err := service.ImportCatalog(context.Background(), repos.Product, catalog, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import aborted after %d product(s): %v\n", report.Imported, err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d product(s)\n", report.Imported)
	if len(report.Rejected) > 0 {
		fmt.Printf("\nRejected %d product(s):\n", len(report.Rejected))
		for _, r := range report.Rejected {
			fmt.Printf("  - %s: %s\n", r.ProductID, r.Reason)
		}
		os.Exit(2)
	}
}
