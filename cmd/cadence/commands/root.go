// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - runs a conversation analysis on a schedule and commits the report it
produces back to the repository.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/config"
	"github.com/bartekus/cadence/internal/logging"
	"github.com/bartekus/cadence/internal/projectroot"
)

// globalOptions holds the persistent root flags.
type globalOptions struct {
	dir        string
	configPath string
	logLevel   string
}

// NewRootCmd constructs the Cadence root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("CADENCE_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "cadence",
		Short:         "Cadence - scheduled analysis report runner",
		Long:          "Cadence provisions the analysis runtime, hands it its credential, runs it and publishes the report it writes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&g.dir, "dir", "C", "", "run as if started in this directory")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default: cadence.yaml in the repository root, if present)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of Cadence",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cadence version %s\n", version)
		},
	})

	cmd.AddCommand(NewRunCommand(g))
	cmd.AddCommand(NewScheduleCommand(g))
	cmd.AddCommand(NewDispatchCommand(g))
	cmd.AddCommand(NewWorkflowCommand(g))

	return cmd
}

// env is what every command needs once flags are parsed.
type env struct {
	root string
	cfg  *config.Config
	log  *log.Logger
}

func (g *globalOptions) load(cmd *cobra.Command) (*env, error) {
	start := g.dir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = wd
	}

	root, err := projectroot.Find(start)
	if err != nil {
		return nil, clierr.Wrap(1, "locating repository", err)
	}

	cfgPath := g.configPath
	if cfgPath != "" {
		cfgPath = g.path(cfgPath)
	}
	cfg, err := config.Load(root, cfgPath)
	if err != nil {
		return nil, clierr.Wrap(1, "loading config", err)
	}

	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level)
	if err != nil {
		return nil, clierr.Wrap(1, "configuring logging", err)
	}
	return &env{root: root, cfg: cfg, log: logger}, nil
}

// path anchors a relative command line path at --dir.
func (g *globalOptions) path(p string) string {
	if g.dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.dir, p)
}

// resolve anchors a relative path at the repository root.
func (e *env) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.root, p)
}
