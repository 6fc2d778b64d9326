package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"camclip/internal/bootstrap"
)

func newRecordCommand() *cobra.Command {
	var userAgent string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Open the camera and record clips interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			term := newTerminal(out, shouldColorize(out))

			var logOutput io.Writer = io.Discard
			if verbose {
				logOutput = cmd.ErrOrStderr()
			}
			services, err := bootstrap.Build(term, term, logOutput)
			if err != nil {
				return err
			}
			defer services.Logger.Sync() //nolint:errcheck
			term.attach(services.Assets, services.Config.Capture.FFPlayCommand, services.Logger)

			defer func() {
				if err := services.Session.Teardown(); err != nil {
					services.Logger.Warn("teardown failed", zap.Error(err))
				}
			}()

			if userAgent == "" {
				userAgent = services.Config.Recorder.UserAgent
			}
			if err := services.Session.Init(ctx, userAgent); err != nil {
				return err
			}

			term.printHelp()
			return newConsole(services.Session, term).run(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&userAgent, "user-agent", "", "Client user agent used to pick the recording container")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Write logs to stderr")
	return cmd
}
