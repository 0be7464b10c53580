// Command heyuhub runs the broker role: it accepts submitter and
// subscriber connections and fans each submitted notification out to
// every current subscriber.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/heyu-project/heyud/internal/config"
	"github.com/heyu-project/heyud/internal/hub"
	"github.com/heyu-project/heyud/internal/logging"
	"github.com/heyu-project/heyud/internal/metrics"
	"github.com/heyu-project/heyud/internal/signals"
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
	var flags config.HubFlags

	cmd := &cobra.Command{
		Use:   "heyuhub [listen...]",
		Short: "Run the self-notification fabric's broker",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				flags.Listen = args
			}
			return runHub(flags)
		},
	}

	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "path to the shared TOML settings file")
	cmd.Flags().StringSliceVar(&flags.Listen, "listen", nil, "listen endpoint (repeatable)")
	cmd.Flags().StringVar(&flags.CertConf, "cert-conf", "", "certificate profile PATH[PROFILE]")
	cmd.Flags().BoolVar(&flags.Insecure, "insecure", false, "disable TLS (local testing only)")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&flags.Foreground, "foreground", false, "stay attached to the controlling terminal")
	cmd.Flags().StringVar(&flags.PIDFile, "pid-file", "", "write the process id to this path")

	return cmd
}

func runHub(flags config.HubFlags) error {
	cfg, err := config.LoadHubConfig(flags.ConfigPath, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	hostname := cfg.Hostname
	if hostname == "" {
		short, herr := os.Hostname()
		if herr != nil {
			return fmt.Errorf("resolving local hostname: %w", herr)
		}
		hostname = fqdn(short)
	}

	var tlsConfig *tls.Config
	if !cfg.Insecure {
		ref, rerr := config.ParseCertRef(cfg.CertConf, "hub")
		if rerr != nil {
			return fmt.Errorf("parsing certificate profile reference: %w", rerr)
		}
		profile, perr := config.LoadCertProfile(ref)
		if perr != nil {
			return fmt.Errorf("loading certificate profile: %w", perr)
		}
		cert, terr := trust.Load(profile, trust.ModeServer, cfg.Insecure)
		if terr != nil {
			return fmt.Errorf("building TLS configuration: %w", terr)
		}
		tlsConfig = cert
	}

	manager := transport.NewManager(logger, tlsConfig)
	manager.SetMaxConnections(cfg.MaxConnections)

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}
	manager.SetMetrics(collector)

	h := hub.New(hostname, manager, logger, collector)

	for _, spec := range cfg.Listen {
		ep, perr := config.ParseEndpoint(spec)
		if perr != nil {
			return fmt.Errorf("parsing listen endpoint %q: %w", spec, perr)
		}
		if lerr := h.Listen(ep); lerr != nil {
			return fmt.Errorf("binding %q: %w", spec, lerr)
		}
	}

	if cfg.PIDFile != "" {
		if werr := os.WriteFile(cfg.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); werr != nil {
			return fmt.Errorf("writing pid file: %w", werr)
		}
		defer os.Remove(cfg.PIDFile)
	}

	ctx, cancelMetrics := context.WithCancel(context.Background())
	defer cancelMetrics()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewPrometheusServer(cfg.Metrics.Address, cfg.Metrics.Path, prometheus.DefaultGatherer)
		go func() {
			if serr := metricsServer.Start(ctx); serr != nil {
				logger.Error("metrics server error", "error", serr.Error())
			}
		}()
		logger.Info("metrics server started", "address", cfg.Metrics.Address, "path", cfg.Metrics.Path)
	}

	cancelSignals := signals.Watch(h)
	defer cancelSignals()

	if err := h.Start(); err != nil {
		return fmt.Errorf("starting hub: %w", err)
	}

	logger.Info("hub started", "hostname", hostname, "listeners", len(cfg.Listen))
	h.Wait()
	logger.Info("hub stopped")
	return nil
}

// fqdn resolves name to a fully-qualified domain name the way
// Python's socket.getfqdn does: forward-resolve it to an address, then
// reverse-resolve that address back to a canonical name. Either step
// failing just falls back to name unchanged, since the origin rewrite
// in internal/hub only needs something better than the bare short name
// when one is available.
func fqdn(name string) string {
	addrs, err := net.LookupHost(name)
	if err != nil || len(addrs) == 0 {
		return name
	}
	names, err := net.LookupAddr(addrs[0])
	if err != nil || len(names) == 0 {
		return name
	}
	return strings.TrimSuffix(names[0], ".")
}
