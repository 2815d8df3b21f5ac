package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var importUnregistered bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the database with the gallery directory tree.",
	Long: `Removes image rows whose files are gone, empty album directories and
albums without media, and creates albums for directories that have none.
With --import, media files that have no image row are registered as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync()
	},
}

func init() {
	syncCmd.Flags().BoolVar(&importUnregistered, "import", false, "register media files that have no image row")
}

func runSync() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if importUnregistered {
		imported, err := a.syncer.Import(ctx)
		if err != nil {
			return err
		}
		if err := enc.Encode(imported); err != nil {
			return err
		}
	}

	report, err := a.syncer.Run(ctx)
	if err != nil {
		return err
	}
	return enc.Encode(report)
}
