package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/cartapi"
	"github.com/jafarshop/variantcart/internal/config"
)

func main() {
	sessionFlag := flag.String("session", "", "Guest session ID whose cart document should be merged")
	customerFlag := flag.String("customer", "", "Customer ID that receives the guest lines")
	dirFlag := flag.String("dir", "", "Guest cart directory (defaults to GUEST_STORE_DIR)")
	concurrencyFlag := flag.Int("concurrency", 0, "Concurrent line submissions (defaults to MERGE_CONCURRENCY)")
	flag.Parse()

	sessionID := strings.TrimSpace(*sessionFlag)
	customerID := strings.TrimSpace(*customerFlag)
	if sessionID == "" || customerID == "" {
		fmt.Println("Usage: go run cmd/merge-guest-cart/main.go --session <guest-session> --customer <customer-id> [--dir data/guest-carts] [--concurrency 4]")
		os.Exit(1)
	}

	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.CartAPI.BaseURL == "" || cfg.CartAPI.ServiceKey == "" {
		fmt.Fprintln(os.Stderr, "CART_API_URL and CART_API_KEY must be set")
		os.Exit(1)
	}

	dir := cfg.GuestStore.Dir
	if *dirFlag != "" {
		dir = *dirFlag
	}
	concurrency := cfg.MergeConcurrency
	if *concurrencyFlag > 0 {
		concurrency = *concurrencyFlag
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The remote service is both the product catalog and the destination cart
	client := cartapi.NewClient(cfg.CartAPI.BaseURL, cfg.CartAPI.ServiceKey, customerID, logger)
	normalizer := cart.NewNormalizer(client, logger)
	guest := cart.NewGuestCart(cart.SessionStore(cart.NewFileDocuments(dir), sessionID), normalizer, logger)

	result, err := cart.NewMerger(guest, client, concurrency, logger).Merge(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Merge failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Merged %d line(s) into customer %s\n", len(result.Merged), customerID)
	for _, r := range result.Merged {
		fmt.Printf("  + %s sku=%q qty=%d\n", r.Product.ID, r.SKU, r.Quantity)
	}
	if result.Partial() {
		fmt.Printf("\n%d line(s) kept in the guest cart, rerun to retry:\n", len(result.Failed))
		for _, r := range result.Failed {
			fmt.Printf("  ! %s sku=%q qty=%d: %v\n", r.Line.Product.ID, r.Line.SKU, r.Line.Quantity, r.Err)
		}
		os.Exit(2)
	}
}
