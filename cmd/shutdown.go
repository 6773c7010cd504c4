package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
)

var exitFunc = os.Exit

// setupShutdownHandler returns a context that is canceled by the first
// shutdown signal, so a foreground session can log out. A second signal
// exits at once without waiting for the logout. The returned stop
// function cancels the context and releases the signal handler.
func setupShutdownHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, shutdownSignals...)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-done:
			return
		}
		fmt.Fprintln(os.Stderr, "nauta: logging out, interrupt again to quit without waiting")
		select {
		case <-sigChan:
			exitFunc(130)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() { close(done) })
		cancel()
	}
}
