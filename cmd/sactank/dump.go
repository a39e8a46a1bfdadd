// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/danjacques/gotracebuf/support/fmtutil"
	"github.com/danjacques/gotracebuf/tank"
	"github.com/danjacques/gotracebuf/tracebuf"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDumpCommand(a *app) *cobra.Command {
	var (
		compression tank.CompressionFlag
		samples     bool
		dumpHex     bool
	)

	cmd := &cobra.Command{
		Use:   "dump [flags] STREAM",
		Short: "Print the packets in a tracebuf stream or tank file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := tank.OpenStream(args[0], compression.Value())
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			tr := tracebuf.NewReader(r)
			count, total := 0, 0
			for {
				p, err := tr.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return errors.Wrapf(err, "reading packet %d", count)
				}

				fmt.Fprintln(out, p)
				if samples {
					fmt.Fprintln(out, p.Samples)
				}
				if dumpHex {
					data, err := p.Encode()
					if err != nil {
						return errors.Wrapf(err, "encoding packet %d", count)
					}
					fmt.Fprint(out, fmtutil.Hex(data))
				}
				count++
				total += len(p.Samples)
			}
			fmt.Fprintf(out, "%d packet(s), %d sample(s)\n", count, total)
			return nil
		},
	}

	cmd.Flags().Var(&compression, "compression",
		"Compression of the input ("+tank.CompressionValues()+").")
	cmd.Flags().BoolVar(&samples, "samples", false, "Print packet samples.")
	cmd.Flags().BoolVar(&dumpHex, "hex", false, "Print a hex dump of each packet.")
	return cmd
}
