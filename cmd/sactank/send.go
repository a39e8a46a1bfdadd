// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/danjacques/gotracebuf/transfer"

	"github.com/spf13/cobra"
)

func newSendCommand(a *app) *cobra.Command {
	var (
		address  string
		listFile string
	)

	cmd := &cobra.Command{
		Use:   "send [flags] [SAC...]",
		Short: "Send SAC files to a sactank server",
		Long: `Send each named SAC file to a sactank server. If no files are named, the
files listed in the configured list file are sent; the list's first line is a
header and is ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("address") {
				a.cfg.Client.Address = address
			}
			if flags.Changed("list") {
				a.cfg.Client.ListFile = listFile
			}
			if err := a.cfg.Client.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			c := transfer.Client{
				Logger:      a.logger,
				Addr:        a.cfg.Client.Address,
				DialTimeout: a.cfg.Client.DialTimeout,
			}
			if len(args) == 0 {
				count, err := c.SendList(ctx, a.cfg.Client.ListFile, a.cfg.Client.SACDir)
				a.logger.Infof("Sent %d file(s).", count)
				return err
			}

			for _, path := range args {
				if err := c.Send(ctx, path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Server address. Overrides the configuration.")
	cmd.Flags().StringVar(&listFile, "list", "", "List of files to send. Overrides the configuration.")
	return cmd
}
