// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package command

// Version is the controller's release version, set at link time with
// -ldflags in the teacher's usual build, defaulting to a dev marker.
var Version = "0.1.0-dev"

// VersionCommand prints the controller's version string.
type VersionCommand struct {
	UI interface{ Output(string) }
}

func (c *VersionCommand) Help() string     { return "Usage: pacemaker-controld version" }
func (c *VersionCommand) Synopsis() string { return "Print the controller version" }

func (c *VersionCommand) Run(args []string) int {
	c.UI.Output("pacemaker-controld v" + Version)
	return ExitOK
}
