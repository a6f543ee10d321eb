// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"os"

	"github.com/hashicorp/cli"
)

// Commands returns the subcommand factory map for hashicorp/cli's
// dispatcher, following the teacher's commands.go layout exactly.
func Commands() map[string]cli.CommandFactory {
	ui := &cli.BasicUi{Writer: os.Stdout, ErrorWriter: os.Stderr}

	return map[string]cli.CommandFactory{
		"agent": func() (cli.Command, error) {
			return &AgentCommand{UI: ui}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{UI: ui}, nil
		},
	}
}
