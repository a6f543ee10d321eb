// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/ryanuber/columnize"
	"github.com/tahliar/pacemaker/internal/ctlrd"
)

// RunSanityCheck renders the `-s` report spec.md §6 requires: validate the
// configuration and print what would be used to start the daemon, without
// actually joining the cluster. Grounded on the teacher's status-command
// idiom of columnize for tabular fields plus color for pass/fail markers.
func RunSanityCheck(cfg *ctlrd.Config) (string, error) {
	started := time.Now()
	rows := []string{
		"FIELD | VALUE",
		fmt.Sprintf("node id | %s", cfg.NodeID),
		fmt.Sprintf("data dir | %s", cfg.DataDir),
		fmt.Sprintf("bind | %s:%d", cfg.BindAddr, cfg.BindPort),
		fmt.Sprintf("peers | %d configured", len(cfg.Peers)),
		fmt.Sprintf("debug | %v", cfg.Debug),
		fmt.Sprintf("fail fast | %v", cfg.FailFast),
		fmt.Sprintf("metrics addr | %s", cfg.MetricsAddr),
	}

	status := color.GreenString("OK")
	if err := cfg.Validate(); err != nil {
		status = color.RedString("FAIL: %v", err)
	}

	out := columnize.SimpleFormat(rows)
	return fmt.Sprintf("pacemaker-controld sanity check: %s\n%s\n(checked in %s)\n",
		status, out, humanize.RelTime(started, time.Now(), "ago", "")), nil
}
