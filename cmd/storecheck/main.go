// Command storecheck は設定されたストアに接続できるかを確認します。
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/book-catalog/internal/config"
	"github.com/yourusername/book-catalog/internal/store/backend"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := check(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "store check failed (%s): %v\n", backend.Describe(cfg), err)
		os.Exit(1)
	}
	fmt.Printf("store reachable: %s\n", backend.Describe(cfg))
}

func check(ctx context.Context, cfg *config.Config) error {
	s, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Ping(ctx)
}
