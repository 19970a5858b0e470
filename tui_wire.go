package main

import (
	"context"

	"gitlab.com/tinyland/lab/host-pulse/alert"
	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/display/tui"
	"gitlab.com/tinyland/lab/host-pulse/probe"
	"gitlab.com/tinyland/lab/host-pulse/sampler"
)

// buildTUIOptions assembles the dashboard model inputs: the host
// identity for the header, the resolved theme, the alert thresholds
// that drive gauge coloring, the cooldown gate for the status line, and
// a history backfill so the sparklines start populated when the
// pipeline has already been sampling.
func buildTUIOptions(ctx context.Context, cfg *config.Config, pipe *sampler.Pipeline, system *probe.System, notifier *alert.Notifier) tui.Options {
	opts := tui.Options{
		Host:       system.HostInfo(ctx),
		Theme:      tui.ThemeByName(cfg.Theme),
		Thresholds: configToThresholds(cfg),
		Filter:     pipe.Config().ProcessFilter,
		SeriesCap:  pipe.Config().HistoryCapacity,
		History:    pipe.History().SnapshotAll(),
	}
	if notifier != nil {
		opts.Gate = notifier.Gate()
	}
	return opts
}
