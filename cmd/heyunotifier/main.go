// Command heyunotifier runs the long-lived subscriber role: it
// maintains a reconnecting connection to a hub and renders each
// delivered notification through one driver sub-command.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/heyu-project/heyud/internal/config"
	"github.com/heyu-project/heyud/internal/logging"
	"github.com/heyu-project/heyud/internal/metrics"
	"github.com/heyu-project/heyud/internal/notifier"
	"github.com/heyu-project/heyud/internal/signals"
	"github.com/heyu-project/heyud/internal/sink"
	"github.com/heyu-project/heyud/internal/transport"
	"github.com/heyu-project/heyud/internal/trust"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags config.NotifierFlags

	root := &cobra.Command{
		Use:   "heyunotifier",
		Short: "Run a long-lived subscriber to a heyu hub",
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to the shared TOML settings file")
	root.PersistentFlags().StringVar(&flags.Host, "host", "", "hub HOSTSPEC to connect to")
	root.PersistentFlags().StringVar(&flags.CertConf, "cert-conf", "", "certificate profile PATH[PROFILE]")
	root.PersistentFlags().BoolVar(&flags.Insecure, "insecure", false, "disable TLS (local testing only)")
	root.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")

	root.AddCommand(newStdoutCommand(&flags))
	root.AddCommand(newFileCommand(&flags))
	root.AddCommand(newScriptCommand(&flags))
	root.AddCommand(newPopupCommand(&flags))

	return root
}

func newStdoutCommand(flags *config.NotifierFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stdout",
		Short: "Print each notification to standard output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotifier(*flags, &sink.StdoutDriver{Out: os.Stdout})
		},
	}
}

func newFileCommand(flags *config.NotifierFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "file PATH",
		Short: "Append each notification to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotifier(*flags, &sink.FileDriver{Path: args[0]})
		},
	}
}

func newScriptCommand(flags *config.NotifierFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "script TEMPLATE",
		Short: "Run a command template once per notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel(flags.Debug))
			driver, err := sink.NewScriptDriver(args[0], logger)
			if err != nil {
				return err
			}
			return runNotifier(*flags, driver)
		},
	}
}

func newPopupCommand(flags *config.NotifierFlags) *cobra.Command {
	return &cobra.Command{
		Use:    "popup",
		Short:  "Forward each notification to the desktop notification service",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("heyunotifier: no desktop-notification backend is built into this binary")
		},
	}
}

func logLevel(debug bool) string {
	if debug {
		return "debug"
	}
	return "info"
}

func runNotifier(flags config.NotifierFlags, driver sink.Driver) error {
	cfg, err := config.LoadNotifierConfig(flags.ConfigPath, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	host, err := config.ResolveHost(cfg.Host, "")
	if err != nil {
		return fmt.Errorf("resolving hub host: %w", err)
	}

	var tlsConfig *tls.Config
	if !cfg.Insecure {
		ref, rerr := config.ParseCertRef(cfg.CertConf, "notifier")
		if rerr != nil {
			return fmt.Errorf("parsing certificate profile reference: %w", rerr)
		}
		profile, perr := config.LoadCertProfile(ref)
		if perr != nil {
			return fmt.Errorf("loading certificate profile: %w", perr)
		}
		cert, terr := trust.Load(profile, trust.ModeClient, cfg.Insecure)
		if terr != nil {
			return fmt.Errorf("building TLS configuration: %w", terr)
		}
		tlsConfig = cert
	}

	manager := transport.NewManager(logger, tlsConfig)

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}
	manager.SetMetrics(collector)
	if setter, ok := driver.(sink.MetricsSetter); ok {
		setter.SetMetrics(collector)
	}

	n := notifier.New(host.Network(), host.Addr(), manager, cfg.MaxSleep, cfg.Threshold, cfg.Recover, logger, collector)

	ctx, cancelMetrics := context.WithCancel(context.Background())
	defer cancelMetrics()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewPrometheusServer(cfg.Metrics.Address, cfg.Metrics.Path, prometheus.DefaultGatherer)
		go func() {
			if serr := metricsServer.Start(ctx); serr != nil {
				logger.Error("metrics server error", "error", serr.Error())
			}
		}()
	}

	cancelSignals := signals.Watch(n)
	defer cancelSignals()

	n.Start(context.Background())
	logger.Info("notifier started", "hub", host.String())

	driverErr := driver.Run(n)

	n.Wait()
	logger.Info("notifier stopped")
	return driverErr
}
