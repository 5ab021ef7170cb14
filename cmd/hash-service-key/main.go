package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jafarshop/variantcart/internal/api/middleware"
)

func main() {
	keyFlag := flag.String("key", "", "Service key trusted callers will send as Bearer token")
	flag.Parse()

	serviceKey := *keyFlag
	if serviceKey == "" && flag.NArg() >= 1 {
		serviceKey = flag.Arg(0)
	}
	// Trim so the stored hash matches what the server receives (the middleware trims the Bearer token)
	serviceKey = strings.TrimSpace(serviceKey)
	if serviceKey == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run cmd/hash-service-key/main.go --key \"your-service-key\"")
		fmt.Println("  go run cmd/hash-service-key/main.go \"your-service-key\"")
		os.Exit(1)
	}

	hash, err := middleware.HashServiceKey(serviceKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash service key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Set this on the server:")
	fmt.Printf("SERVICE_KEY_HASH=%s\n", hash)
	fmt.Println("\nCallers send:")
	fmt.Printf("Authorization: Bearer %s\n", serviceKey)
	fmt.Printf("CART_API_KEY=%s\n", serviceKey)
}
