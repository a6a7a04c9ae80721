package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"forsai/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "forsai: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
