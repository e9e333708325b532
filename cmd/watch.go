package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"doorbell-uploader/connectors"
	"doorbell-uploader/notifier"
	"doorbell-uploader/watcher"

	"github.com/romana/rlog"
	"github.com/spf13/cobra"
)

// WatchCmd creates the watch command uploading through Slack
func WatchCmd() *cobra.Command {
	return watchCmd(connectors.NewSlackClient)
}

func watchCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Uploads every new snapshot written to the snapshot file",
		Long: `Watches the snapshot file and uploads each completely written snapshot once.
Stops on SIGINT/SIGTERM, or with exit code 1 after SHUT_DOWN_AFTER_ERRORS failed uploads in a row.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			u := notifier.New(newClient(cfg.Slack), cfg.Slack.Timeout, connectors.Archivers(cfg)...)
			req := notifier.NewUploadRequest(cfg)

			w, err := watcher.New(cfg.Snapshot.Path, cfg.Watch, func(ctx context.Context, fileName string) error {
				outcome := u.Upload(ctx, req)
				outcome.Report(cmd.OutOrStdout(), cmd.ErrOrStderr())
				u.Archive(req, outcome)
				return outcome.Err
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return err
			}

			rlog.Info(`Shutting down!`)
			return nil
		},
	}
}
