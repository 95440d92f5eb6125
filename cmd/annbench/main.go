// Command annbench builds HNSW and IVF indexes over random data and reports
// their search results and recall.
//
// Usage:
//
//	annbench [flags] <command>
//
// Commands:
//
//	demo   - index random vectors and print the neighbors of one query
//	recall - measure mean recall@k against exact search
//
// Configuration:
//
//	Settings are read from ANNBENCH_* environment variables, optionally
//	loaded from a .env file, and overridden by flags.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
