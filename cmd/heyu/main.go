// Command heyu is the one-shot submit client: it sends a single notify
// frame to a hub and reports the reply.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heyu-project/heyud/internal/config"
	"github.com/heyu-project/heyud/internal/protocol"
	"github.com/heyu-project/heyud/internal/submitter"
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
	var flags config.SubmitterFlags
	var appName, category, urgencyName string

	cmd := &cobra.Command{
		Use:   "heyu SUMMARY BODY",
		Short: "Submit a single notification to a heyu hub",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(flags, appName, args[0], args[1], category, urgencyName)
		},
	}

	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "path to the shared TOML settings file")
	cmd.Flags().StringVar(&flags.Host, "host", "", "hub HOSTSPEC to connect to")
	cmd.Flags().StringVar(&flags.CertConf, "cert-conf", "", "certificate profile PATH[PROFILE]")
	cmd.Flags().BoolVar(&flags.Insecure, "insecure", false, "disable TLS (local testing only)")
	cmd.Flags().StringVar(&appName, "app-name", "heyu", "application name to submit as")
	cmd.Flags().StringVar(&category, "category", "", "optional notification category")
	cmd.Flags().StringVar(&urgencyName, "urgency", "low", "notification urgency: low, normal, or critical")

	return cmd
}

func runSubmit(flags config.SubmitterFlags, appName, summary, body, category, urgencyName string) error {
	cfg, err := config.LoadSubmitterConfig(flags.ConfigPath, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	host, err := config.ResolveHost(cfg.Host, "")
	if err != nil {
		return fmt.Errorf("resolving hub host: %w", err)
	}

	var tlsConfig *tls.Config
	if !cfg.Insecure {
		ref, rerr := config.ParseCertRef(cfg.CertConf, "submitter")
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

	urgency, err := protocol.ParseUrgency(urgencyName)
	if err != nil {
		return err
	}

	opts := []protocol.NotifyOption{protocol.WithUrgency(urgency)}
	if category != "" {
		opts = append(opts, protocol.WithCategory(category))
	}
	msg := protocol.NewNotify(appName, summary, body, opts...)

	manager := transport.NewManager(nil, tlsConfig)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := submitter.Submit(ctx, manager, host.Network(), host.Addr(), msg)
	if err != nil {
		return err
	}

	switch {
	case result.ID != "":
		fmt.Println(result.ID)
	case result.ErrorReason != "":
		fmt.Fprintln(os.Stderr, result.ErrorReason)
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, result.Other)
	}
	return nil
}
