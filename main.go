package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/ffaudio/cmd"
	"github.com/tphakala/ffaudio/internal/app"
	"github.com/tphakala/ffaudio/internal/buildinfo"
	"github.com/tphakala/ffaudio/internal/ffaudio"
)

func main() {
	os.Exit(mainWithExitCode())
}

// mainWithExitCode runs the CLI and returns the process exit code, so that
// deferred cleanup runs before os.Exit
func mainWithExitCode() int {
	// Interrupts cancel the command context, which kills any running FFmpeg
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := app.New(buildinfo.Current())
	rootCmd := cmd.RootCommand(appCtx)

	err := rootCmd.ExecuteContext(ctx)
	if cerr := appCtx.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", cerr)
	}
	if err == nil {
		return 0
	}

	if kind := ffaudio.KindOf(err); kind != ffaudio.KindUnknown {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", kind, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return 1
}
