package main

import (
	"context"
	"encoding/json"
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
	"github.com/jafarshop/variantcart/internal/service"
)

func main() {
	asJSON := flag.Bool("json", false, "Print the selection view as JSON")
	skuFlag := flag.String("sku", "", "Resolve this SKU the way add-to-cart does instead of an attribute selection")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: go run cmd/find-sku/main.go [--json] [--sku=SKU] <product-id> [Key=Value ...]")
		fmt.Println("Example: go run cmd/find-sku/main.go prod-123 Color=Red Size=M")
		os.Exit(1)
	}

	productID := strings.TrimSpace(flag.Arg(0))
	selection, err := parseSelection(flag.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
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
	product, err := repos.Product.GetProduct(context.Background(), productID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load product %s: %v\n", productID, err)
		os.Exit(1)
	}

	if *skuFlag != "" {
		resolveSKU(product, *skuFlag)
		return
	}

	view, err := service.BuildSelectionView(product, selection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve selection: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode view: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printView(product, view)
}

func parseSelection(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid selection %q, expected Key=Value", arg)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func resolveSKU(product *domain.Product, sku string) {
	line, err := cart.Normalize(domain.CartLine{
		Product:  domain.ProductSnapshot{ID: product.ID},
		SKU:      sku,
		Quantity: 1,
	}, product)
	if err != nil {
		fmt.Printf("NOT ADDABLE: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ADDABLE:")
	fmt.Printf("  Product : %s (%s)\n", product.Name, product.ID)
	fmt.Printf("  SKU     : %q\n", line.SKU)
	fmt.Printf("  Price   : %s\n", line.Product.Price.StringFixed(2))
}

func printView(product *domain.Product, view *service.SelectionView) {
	fmt.Printf("Product: %s (%s), %d variant(s)\n\n", product.Name, product.ID, len(product.Variants))

	for _, attr := range view.Attributes {
		fmt.Printf("%s:\n", attr.Key)
		for _, opt := range attr.Options {
			marker := " "
			if opt.IsSelected {
				marker = "*"
			}
			fmt.Printf("  %s %-20s %-12s stock=%d\n", marker, opt.Value, opt.AvailabilityStatus, opt.Stock)
		}
	}

	fmt.Println()
	if v := view.State.SelectedVariant; v != nil {
		fmt.Printf("Selected: %s\n", view.Summary)
		fmt.Printf("  SKU   : %q\n", v.SKU)
		fmt.Printf("  Price : %s\n", v.Price.StringFixed(2))
		fmt.Printf("  Stock : %d (%s)\n", v.Stock, v.Status)
		if view.DiscountPercentage > 0 {
			fmt.Printf("  Discount: %d%%\n", view.DiscountPercentage)
		}
	} else if len(view.MissingAttributes) > 0 {
		fmt.Printf("Missing: %s\n", strings.Join(view.MissingAttributes, ", "))
	} else {
		fmt.Println("No variant matches this selection")
	}
	fmt.Printf("Can add to cart: %t\n", view.CanAddToCart)
}
