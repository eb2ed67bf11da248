// wiretrap - a TLS-terminating command-dispatch server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wiretrap/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wiretrap: %v\n", err)
		os.Exit(1)
	}
}
