package main

import (
	"log/slog"

	"gitlab.com/tinyland/lab/host-pulse/alert"
	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/csvlog"
	"gitlab.com/tinyland/lab/host-pulse/probe"
	"gitlab.com/tinyland/lab/host-pulse/sampler"
	"gitlab.com/tinyland/lab/host-pulse/state"
)

// buildPipeline wires the full sampling core from the configuration:
// the gopsutil probes, the alert notifier when alerts are enabled, and
// the durable CSV writer. Every front-end shares this one pipeline.
// The returned notifier is nil when alerting is disabled. The caller
// owns the returned writer and must Close it to flush the log tail.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*sampler.Pipeline, *probe.System, *alert.Notifier, *csvlog.Writer, error) {
	system := probe.NewSystem("", logger)

	deps := sampler.Deps{
		System: system,
		Procs:  system,
		Logger: logger,
	}

	notifier := buildNotifier(cfg, logger)
	if notifier != nil {
		deps.Alerts = notifier
	}

	writer, err := csvlog.NewWriter(cfg.Log.Path, cfg.Log.QueueCapacity, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	deps.Log = writer

	return sampler.New(configToSampler(cfg), deps), system, notifier, writer, nil
}

// buildPeekPipeline wires a pipeline with no durable consumers for the
// one-shot mode: it reads the host, it does not log or alert.
func buildPeekPipeline(cfg *config.Config, logger *slog.Logger) (*sampler.Pipeline, *probe.System) {
	system := probe.NewSystem("", logger)
	pipe := sampler.New(configToSampler(cfg), sampler.Deps{
		System: system,
		Procs:  system,
		Logger: logger,
	})
	return pipe, system
}

// buildNotifier assembles the alert notifier from the configuration.
// Returns nil when alerts are disabled.
func buildNotifier(cfg *config.Config, logger *slog.Logger) *alert.Notifier {
	if !cfg.Alerts.Enabled {
		return nil
	}

	store, err := state.NewStore(cfg.StateDir(), logger)
	if err != nil {
		// Gate persistence is best-effort; alerting works without it,
		// the cooldown just resets on restart.
		logger.Warn("state store unavailable", "error", err)
		store = nil
	}

	cooldown := parseDuration(cfg.Alerts.Cooldown, defaultCooldown)
	return alert.NewNotifier(configToThresholds(cfg), cooldown, buildTransports(cfg, logger), store, logger)
}

// buildTransports returns the delivery channels for alert
// notifications: SMTP when a server is configured, webhook when a URL
// is set, and the log-only transport when neither is.
func buildTransports(cfg *config.Config, logger *slog.Logger) []alert.Transport {
	var transports []alert.Transport

	if cfg.Alerts.SMTP.Host != "" {
		transports = append(transports, &alert.SMTPTransport{
			Host:     cfg.Alerts.SMTP.Host,
			Port:     cfg.Alerts.SMTP.Port,
			Username: cfg.Alerts.SMTP.Username,
			Password: cfg.Alerts.SMTP.Password,
			From:     cfg.Alerts.SMTP.From,
			To:       cfg.Alerts.SMTP.To,
		})
	}

	if cfg.Alerts.WebhookURL != "" {
		transports = append(transports, alert.NewWebhookTransport(cfg.Alerts.WebhookURL))
	}

	if len(transports) == 0 {
		transports = append(transports, &alert.LogTransport{Logger: logger})
	}

	return transports
}

// configToSampler converts the file configuration into cycle settings.
func configToSampler(cfg *config.Config) sampler.Config {
	return sampler.Config{
		Interval:        parseDuration(cfg.Sample.Interval, defaultSampleInterval),
		HistoryCapacity: cfg.Sample.HistoryCapacity,
		ProcessFilter:   cfg.Sample.ProcessFilter,
		TopK:            cfg.Sample.TopK,
	}
}

// configToThresholds converts the configured percentages to the alert
// package type.
func configToThresholds(cfg *config.Config) alert.Thresholds {
	return alert.Thresholds{
		CPUPercent:  cfg.Thresholds.CPUPercent,
		RAMPercent:  cfg.Thresholds.RAMPercent,
		DiskPercent: cfg.Thresholds.DiskPercent,
	}
}
