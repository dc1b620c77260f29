package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/local/pagepicker/internal/filetype"
	"github.com/local/pagepicker/internal/shell"
	"github.com/local/pagepicker/internal/view"
)

func newShellCommand(ctx *commandContext) *cobra.Command {
	var resume string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: upload, pick pages, process and download",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctrl, err := ctx.newController(resume)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			term := view.NewTerminal(out)
			if err := ctx.resume(runCtx, ctrl, resume != ""); err != nil {
				return err
			}
			ctrl.Subscribe(term)

			prompt := ""
			if view.IsTerminal(os.Stdin) {
				prompt = "> "
			}
			sh := shell.New(shell.Options{
				Controller: ctrl,
				Detector:   filetype.New(),
				Sinks:      ctx.sinks(),
				View:       term,
				Out:        out,
				Prompt:     prompt,
			})
			cmd.Printf("session %s, type help for commands\n", ctrl.SessionID())
			return sh.Run(runCtx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&resume, "resume", "", "Resume a stored session by id")
	return cmd
}
