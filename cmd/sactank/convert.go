// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danjacques/gotracebuf/sac"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newConvertCommand(a *app) *cobra.Command {
	var (
		output     string
		maxSamples int
	)

	cmd := &cobra.Command{
		Use:   "convert [flags] SAC...",
		Short: "Append SAC files to a tracebuf stream",
		Long: `Convert each SAC file into TRACEBUF2 packets and append them to the output
stream. Files that fail to convert are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-samples") {
				a.cfg.Convert.MaxSamples = maxSamples
				if err := a.cfg.Convert.Validate(); err != nil {
					return errors.Wrap(err, "--max-samples")
				}
			}
			if output == "" {
				output = a.cfg.Tank.Stream
			}
			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				return errors.Wrap(err, "creating output directory")
			}

			conv := newConverter(&a.cfg.Convert, a.logger)
			failed := 0
			for _, src := range args {
				res, err := conv.Convert(src, output)
				if err != nil {
					failed++
					switch {
					case sac.IsConsistencyError(err):
						a.logger.Errorf("%s (is the file byte-swapped?)", err)
					default:
						a.logger.Errorf("Could not convert %q: %s", src, err)
					}
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), res)
			}

			if failed > 0 {
				return errors.Errorf("%d of %d file(s) could not be converted", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Tracebuf stream to append to. Defaults to the configured tank stream.")
	cmd.Flags().IntVar(&maxSamples, "max-samples", 0,
		"Maximum number of samples per packet. Overrides the configuration.")
	return cmd
}
