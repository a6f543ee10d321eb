// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// newShutdownContext returns a context cancelled on SIGINT/SIGTERM, the
// teacher's usual pattern for letting the foreground agent command drain
// cleanly instead of dying mid-transition.
func newShutdownContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
