package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"doorbell-uploader/config"
	"doorbell-uploader/connectors"
	"doorbell-uploader/notifier"

	"github.com/romana/rlog"
	"github.com/spf13/cobra"
)

const (
	FlagEnv       = "env"
	FlagLogConfig = "log-config"

	DefaultEnv       = ".env"
	DefaultLogConfig = ".env.log"

	// stderr is reserved for the status line unless logging is configured
	defaultLogLevel = "WARN"
)

var version = "dev"

// ErrFailed is returned once the failure was already reported to the user
var ErrFailed = errors.New("upload failed")

type clientFactory func(cfg config.Slack) notifier.ClientFactory

// RootCmd creates the doorbell-uploader command. Without a subcommand it uploads the snapshot once.
func RootCmd() *cobra.Command {
	return rootCmd(connectors.NewSlackClient)
}

func rootCmd(newClient clientFactory) *cobra.Command {
	r := &cobra.Command{
		Use:   "doorbell-uploader",
		Short: "Uploads the latest doorbell snapshot to a Slack channel",
		Long: `Uploads the configured snapshot file with a caption to a Slack channel.
Exits with 0 if Slack accepted the file and 1 on any failure.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			u := notifier.New(newClient(cfg.Slack), cfg.Slack.Timeout, connectors.Archivers(cfg)...)
			req := notifier.NewUploadRequest(cfg)
			outcome := u.Upload(commandContext(cmd), req)
			outcome.Report(cmd.OutOrStdout(), cmd.ErrOrStderr())
			u.Archive(req, outcome)
			if outcome.ExitCode() != 0 {
				return ErrFailed
			}
			return nil
		},
	}

	r.PersistentFlags().String(FlagEnv, DefaultEnv, "dotenv file with the configuration")
	r.PersistentFlags().String(FlagLogConfig, DefaultLogConfig, "rlog configuration file")

	r.AddCommand(watchCmd(newClient), VersionCmd())

	return r
}

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "prints the version of doorbell-uploader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
			return nil
		},
	}
}

// setupLogging reads the rlog configuration if there is one. Without it only
// warnings and errors are logged.
func setupLogging(cmd *cobra.Command, args []string) error {
	logConfig, err := cmd.Flags().GetString(FlagLogConfig)
	if err != nil {
		return err
	}

	if _, err := os.Stat(logConfig); err == nil {
		rlog.SetConfFile(logConfig)
		return nil
	}

	if _, ok := os.LookupEnv(`RLOG_LOG_LEVEL`); !ok {
		if err := os.Setenv(`RLOG_LOG_LEVEL`, defaultLogLevel); err != nil {
			return err
		}
		rlog.UpdateEnv()
	}
	return nil
}

// loadConfig reports configuration problems itself and returns ErrFailed
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, err := cmd.Flags().GetString(FlagEnv)
	if err != nil {
		return nil, err
	}

	if err := config.LoadEnvFile(envFile, cmd.Flags().Changed(FlagEnv)); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "❌ Configuration error: %v\n", err)
		return nil, ErrFailed
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "❌ Configuration error: %v\n", err)
		return nil, ErrFailed
	}

	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
