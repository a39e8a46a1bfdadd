// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package main

import (
	"github.com/danjacques/gotracebuf/config"
	"github.com/danjacques/gotracebuf/support/logging"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.SugaredLogger
}

func newRootCommand() *cobra.Command {
	var a app

	cmd := &cobra.Command{
		Use:   "sactank",
		Short: "Convert SAC files into tracebuf streams and tank files",
		Long: `sactank converts SAC waveform files into TRACEBUF2 packet streams.

It can convert local files, receive files from remote senders, and batch the
resulting stream into numbered tank files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "",
		"Path to a YAML configuration file. If empty, defaults are used.")
	flags.StringVar(&a.logLevel, "log-level", "",
		"Log level (debug, info, warn, error). Overrides the configuration.")

	cmd.AddCommand(
		newConvertCommand(&a),
		newDumpCommand(&a),
		newServeCommand(&a),
		newSendCommand(&a),
		newRotateCommand(&a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Defaults()
	}

	if cmd.Flags().Changed("log-level") {
		a.cfg.Logging.Level = a.logLevel
	}

	logger, err := logging.New(a.cfg.Logging.Level)
	if err != nil {
		return errors.Wrap(err, "--log-level")
	}
	a.logger = logger
	return nil
}
