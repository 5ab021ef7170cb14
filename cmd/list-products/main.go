package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/config"
	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository/postgres"
	"github.com/jafarshop/variantcart/internal/variant"
)

func main() {
	search := flag.String("search", "", "Only show products whose name or a variant SKU contains this text")
	pageSize := flag.Int("page-size", 100, "Products fetched per query")
	flag.Parse()

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
	ctx := context.Background()
	term := strings.ToUpper(strings.TrimSpace(*search))

	count := 0
	for offset := 0; ; offset += *pageSize {
		products, err := repos.Product.List(ctx, *pageSize, offset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list products: %v\n", err)
			os.Exit(1)
		}
		for _, p := range products {
			if term != "" && !matches(p, term) {
				continue
			}
			count++
			printProduct(p)
		}
		if len(products) < *pageSize {
			break
		}
	}

	fmt.Printf("\nTotal: %d product(s)\n", count)
}

func matches(p *domain.Product, term string) bool {
	if strings.Contains(strings.ToUpper(p.Name), term) {
		return true
	}
	for _, v := range p.Variants {
		if strings.Contains(domain.NormalizeSKU(v.SKU), term) {
			return true
		}
	}
	return false
}

func printProduct(p *domain.Product) {
	keys := variant.NewIndex(p.Variants).Keys()
	fmt.Printf("%s  %s  (%d variant(s)", p.ID, p.Name, len(p.Variants))
	if len(keys) > 0 {
		fmt.Printf(", attributes: %s", strings.Join(keys, ", "))
	}
	fmt.Println(")")

	if sku := cart.ResolveDefaultSKU(p); sku != "" {
		fmt.Printf("  default sku: %s\n", sku)
	} else if len(p.Variants) > 1 {
		fmt.Println("  default sku: none (add to cart requires a sku)")
	}
	for _, v := range p.Variants {
		var attrs []string
		for _, a := range v.Attributes {
			attrs = append(attrs, a.Key+"="+a.Value)
		}
		fmt.Printf("  - %-16s %-28s stock=%-4d %-8s %s\n", v.SKU, strings.Join(attrs, " "), v.Stock, v.Status, v.Price.StringFixed(2))
	}
}
