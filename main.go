package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wbnns/cw/cmd"
	"github.com/wbnns/cw/internal/errors"
	"github.com/wbnns/cw/internal/logger"
)

// Version information set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	logger.Close()
	if err != nil {
		if kind := errors.GetKind(err); kind != errors.KindUnknown {
			fmt.Fprintf(os.Stderr, "Error: %s: %s\n", kind, errors.UserMessage(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
