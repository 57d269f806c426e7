// Command service launches exactly one control-plane service process,
// selected by name on the command line (trader-go/cmd/server's single-
// binary-per-role pattern, generalized to this module's dozen named
// services). Run as `service <name>`, where name is one of
// config.Ports' keys.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/config"
	"github.com/autofinance/control-plane/internal/logger"
	"github.com/autofinance/control-plane/internal/procsupervisor"
	"github.com/autofinance/control-plane/internal/providers"
	"github.com/autofinance/control-plane/internal/rpcclient"
	"github.com/autofinance/control-plane/internal/rpcserver"
	"github.com/autofinance/control-plane/internal/services/alertengine"
	"github.com/autofinance/control-plane/internal/services/compliance"
	"github.com/autofinance/control-plane/internal/services/execution"
	"github.com/autofinance/control-plane/internal/services/fundamental"
	"github.com/autofinance/control-plane/internal/services/macro"
	"github.com/autofinance/control-plane/internal/services/market"
	"github.com/autofinance/control-plane/internal/services/news"
	"github.com/autofinance/control-plane/internal/services/notification"
	"github.com/autofinance/control-plane/internal/services/portfolioanalytics"
	"github.com/autofinance/control-plane/internal/services/risk"
	"github.com/autofinance/control-plane/internal/services/simulation"
	"github.com/autofinance/control-plane/internal/services/technical"
	"github.com/autofinance/control-plane/internal/services/volatility"
	"github.com/autofinance/control-plane/internal/supervisors/invest"
	"github.com/autofinance/control-plane/internal/supervisors/trade"
)

const initialPortfolioCash = 100000

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: service <name>")
		fmt.Fprintln(os.Stderr, "available services:", strings.Join(availableServices(), ", "))
		os.Exit(1)
	}
	name := os.Args[1]
	if _, known := config.Ports[name]; !known {
		fmt.Fprintf(os.Stderr, "unknown service %q; available: %s\n", name, strings.Join(availableServices(), ", "))
		os.Exit(1)
	}

	cfg, err := config.Load(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if name == "supervisor" {
		runSupervisor(cfg, log)
		return
	}

	var complianceClient *rpcclient.Client
	if name != "compliance" {
		complianceClient = rpcclient.New(cfg.PeerURLs["compliance"], name, 10*time.Second)
	}
	onFault := func(producer, action string, err error) {
		log.Error().Str("producer", producer).Str("action", action).Err(err).Msg("internal fault")
		if complianceClient == nil {
			return
		}
		var out map[string]any
		_ = complianceClient.CallTool(context.Background(), "log_event", map[string]any{
			"event_type": "error", "agent_name": producer, "action": action,
			"details": map[string]any{"error": err.Error()}, "severity": "critical",
		}, &out)
	}

	registry := rpcserver.NewRegistry()
	cleanup, err := wire(name, cfg, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire service")
	}
	if cleanup != nil {
		defer cleanup()
	}

	srv := rpcserver.NewServer(name, "1.0", cfg.Port, registry, log, onFault)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// runSupervisor implements the "supervisor" pseudo-service: it spawns every
// other named service as a child of this same binary and serves an
// aggregate health view on its own port.
func runSupervisor(cfg *config.Config, log zerolog.Logger) {
	names := make([]string, 0, len(config.Ports)-1)
	for n := range config.Ports {
		if n != "supervisor" {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	sup := procsupervisor.New(os.Args[0], cfg.PeerURLs, log)
	if err := sup.Spawn(names); err != nil {
		log.Fatal().Err(err).Msg("failed to spawn child services")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sup.PollHealth(ctx)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", sup.ServeHealth)
	httpSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("supervisor listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("supervisor health server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	sup.Shutdown()
}

func availableServices() []string {
	names := make([]string, 0, len(config.Ports))
	for n := range config.Ports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// peer builds a Client for one downstream service named by config.Ports.
func peer(cfg *config.Config, clientName, peerName string, timeout time.Duration) *rpcclient.Client {
	return rpcclient.New(cfg.PeerURLs[peerName], clientName, timeout)
}

// wire registers every tool for the named service and returns an optional
// cleanup func (closed file handles, stopped background monitors).
func wire(name string, cfg *config.Config, registry *rpcserver.Registry, log zerolog.Logger) (func(), error) {
	switch name {
	case "market":
		market.RegisterTools(registry, market.New(providers.NewDeterministicQuoteProvider(), log))
		return nil, nil

	case "technical":
		technical.RegisterTools(registry, technical.New(providers.NewDeterministicQuoteProvider(), log))
		return nil, nil

	case "volatility":
		volatility.RegisterTools(registry, volatility.New(providers.NewDeterministicQuoteProvider(), log))
		return nil, nil

	case "news":
		news.RegisterTools(registry, news.New(providers.NewKeywordFallbackNewsProvider(), providers.NewKeywordSentimentScorer(), log))
		return nil, nil

	case "macro":
		macro.RegisterTools(registry, macro.New(providers.NewDeterministicEconProvider(), log))
		return nil, nil

	case "fundamental":
		fundamental.RegisterTools(registry, fundamental.New(providers.NewDeterministicCompanyInfoProvider(), log))
		return nil, nil

	case "risk":
		risk.RegisterTools(registry)
		return nil, nil

	case "portfolio-analytics":
		portfolioanalytics.RegisterTools(registry)
		return nil, nil

	case "execution":
		execution.RegisterTools(registry, execution.New(initialPortfolioCash, log))
		return nil, nil

	case "compliance":
		writer, cleanup, err := buildComplianceWriter(cfg, log)
		if err != nil {
			return nil, err
		}
		compliance.RegisterTools(registry, compliance.New(writer, log))
		return cleanup, nil

	case "notification":
		store, err := notification.OpenStore(cfg.NotificationLogDir + "/notifications.db")
		if err != nil {
			return nil, fmt.Errorf("opening notification store: %w", err)
		}
		notification.RegisterTools(registry, notification.New(buildChannels(cfg), store, log))
		return func() { _ = store.Close() }, nil

	case "simulation":
		simulation.RegisterTools(registry, simulation.New(providers.NewDeterministicQuoteProvider(), log))
		return nil, nil

	case "alert-engine":
		svc := alertengine.New(cfg.AlertsFilePath,
			peer(cfg, name, "market", 5*time.Second),
			peer(cfg, name, "notification", 10*time.Second),
			log)
		alertengine.RegisterTools(registry, svc)
		return func() { svc.Registry.Flush() }, nil

	case "trader-supervisor":
		svc := trade.New(trade.Peers{
			Market:     peer(cfg, name, "market", 5*time.Second),
			Technical:  peer(cfg, name, "technical", 10*time.Second),
			Volatility: peer(cfg, name, "volatility", 10*time.Second),
			News:       peer(cfg, name, "news", 15*time.Second),
			Risk:       peer(cfg, name, "risk", 5*time.Second),
			Execution:  peer(cfg, name, "execution", 10*time.Second),
			Compliance: peer(cfg, name, "compliance", 5*time.Second),
		}, log)
		trade.RegisterTools(registry, svc)
		return nil, nil

	case "investor-supervisor":
		svc := invest.New(invest.Peers{
			Execution:          peer(cfg, name, "execution", 10*time.Second),
			PortfolioAnalytics: peer(cfg, name, "portfolio-analytics", 10*time.Second),
			Macro:              peer(cfg, name, "macro", 10*time.Second),
			Fundamental:        peer(cfg, name, "fundamental", 15*time.Second),
			Risk:               peer(cfg, name, "risk", 5*time.Second),
			Compliance:         peer(cfg, name, "compliance", 5*time.Second),
		}, log)
		invest.RegisterTools(registry, svc)
		return nil, nil

	default:
		return nil, fmt.Errorf("no wiring defined for service %q", name)
	}
}

func buildComplianceWriter(cfg *config.Config, log zerolog.Logger) (compliance.Writer, func(), error) {
	if cfg.ComplianceS3Bucket == "" {
		return nil, nil, nil
	}
	writer, err := compliance.NewS3Writer(context.Background(), cfg.ComplianceS3Bucket, "audit-log", log)
	if err != nil {
		return nil, nil, fmt.Errorf("building S3 compliance writer: %w", err)
	}
	return writer, writer.Close, nil
}

func buildChannels(cfg *config.Config) []notification.Channel {
	channels := []notification.Channel{notification.NewFileChannel(cfg.NotificationLogDir)}
	if cfg.DiscordWebhookURL != "" {
		channels = append(channels, notification.NewDiscordChannel(cfg.DiscordWebhookURL, 10*time.Second))
	}
	if cfg.SlackWebhookURL != "" || cfg.SlackBotToken != "" {
		channels = append(channels, notification.NewSlackChannel(cfg.SlackWebhookURL, cfg.SlackBotToken, cfg.SlackChannel, 10*time.Second))
	}
	if cfg.NotificationWebhook != "" {
		channels = append(channels, notification.NewWebhookChannel(cfg.NotificationWebhook, 10*time.Second))
	}
	if cfg.SMTPHost != "" {
		channels = append(channels, notification.NewEmailChannel(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom))
	}
	return channels
}
