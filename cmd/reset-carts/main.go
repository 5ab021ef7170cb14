// reset-carts deletes every customer cart line, guest cart document and idempotency key for a
// fresh test. Products are kept. Use the same DB as the server (.env or DB_* variables).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/jafarshop/variantcart/internal/config"
	"github.com/jafarshop/variantcart/internal/repository/postgres"
)

func main() {
	withProducts := flag.Bool("products", false, "Also delete the product catalog")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	tables := []string{
		"idempotency_keys",
		"cart_lines",
		"guest_carts",
	}
	if *withProducts {
		tables = append(tables, "products")
	}
	for _, table := range tables {
		result, err := db.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			log.Fatalf("Failed to delete from %s: %v", table, err)
		}
		rows, _ := result.RowsAffected()
		fmt.Printf("Deleted %d row(s) from %s\n", rows, table)
	}
	fmt.Println("Done. Re-import products with: go run cmd/import-products/main.go catalog.json")
}
