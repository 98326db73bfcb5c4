// Package main is the shapegen command itself.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.viam.com/shapegen/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		//nolint:errcheck
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
