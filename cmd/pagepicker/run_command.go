package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/local/pagepicker/internal/filetype"
	"github.com/local/pagepicker/internal/shell"
	"github.com/local/pagepicker/internal/view"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var pages string
	var output string

	cmd := &cobra.Command{
		Use:   "run <file.pdf>",
		Short: "Upload, select pages, process and download in one go",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			detector := filetype.New()
			if _, err := detector.RequirePDF(args[0]); err != nil {
				return err
			}
			f, closer, err := shell.OpenUpload(detector, args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			ctrl, err := ctx.newController("")
			if err != nil {
				return err
			}
			if err := ctx.resume(runCtx, ctrl, false); err != nil {
				return err
			}
			ctrl.Subscribe(view.NewTerminal(cmd.OutOrStdout()))

			if err := ctrl.SubmitUpload(runCtx, f); err != nil {
				return err
			}
			if pages != "" {
				want, err := shell.ParsePages(pages, ctrl.Snapshot().TotalPages)
				if err != nil {
					return err
				}
				if err := ctrl.DeselectAll(); err != nil {
					return err
				}
				if err := ctrl.TogglePages(want); err != nil {
					return err
				}
			}
			if err := ctrl.SubmitProcess(runCtx); err != nil {
				return err
			}
			sink, err := ctx.sinks()(runCtx, output)
			if err != nil {
				return err
			}
			loc, err := ctrl.Download(runCtx, sink)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", loc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pages, "pages", "p", "", "Pages to keep, 1-based, e.g. 1,3-5 (default all)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Download target: file, directory or s3://bucket/key")
	return cmd
}

func newClearCacheCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Ask the server to drop its cached uploads and results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.newController("")
			if err != nil {
				return err
			}
			msg, err := ctrl.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
