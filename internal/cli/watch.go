package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marginalia/internal/ui"
	"marginalia/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the bucket and process drops automatically",
	Long: `Watches the bucket directory and runs the processing pass whenever a
dropped file settles. Copying an e-book in is all it takes; a few
seconds later its landing page exists.

The watcher:
- Monitors the bucket directory for new files
- Waits for a file to stop growing before touching it
- Runs the same pass as 'mgn process' on each settled batch
- Picks up files already sitting in the bucket on startup

Examples:
  mgn watch
  mgn watch --debug

  # Run in background (shell-dependent)
  mgn watch &`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("debug", false, "Enable debug logging")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")

	cat, err := openCatalog()
	if err != nil {
		return handleError(ErrCatalogError, err, "")
	}
	defer cat.Close()

	p := newProcessor(cat)
	logger := newAuditLogger()

	w, err := watcher.New(watcher.Config{
		Dir:           getLayout().Bucket(),
		DebounceDelay: getConfig().Watch.Debounce(),
		Debug:         debug,
		OnSettle: func(paths []string) {
			infof("")
			rep, err := runIntakePass(cmd.Context(), p, true)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error processing drop: %v\n", err)
				return
			}
			auditPass(logger, rep)
			reportPass(rep, false)
		},
	})
	if err != nil {
		return handleError(ErrInternal, err, "")
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down watcher...")
		cancel()
	}()

	fmt.Printf("Watching bucket: %s\n", ui.FilePath(getLayout().Bucket()))
	fmt.Println("Press Ctrl+C to stop")

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return handleError(ErrInternal, err, "")
	}
	return nil
}
