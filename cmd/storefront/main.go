package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Storefront/internal/config"
	"Storefront/internal/storefront"
	"Storefront/internal/tui"
	"Storefront/pkg/kit"
)

const service = "storefront"

var (
	// Global flags
	configPath string
	catalogURL string
	addr       string
	logLevel   string
	currency   string
	title      string
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront over a remote product catalog",
	Long: `Lists the products of a JSON catalog API and keeps a cart with a running
total. The web storefront gives every browser session its own page; the
terminal storefront runs one page in the current terminal.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web storefront",
	RunE:  runServe,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the storefront in the terminal",
	RunE:  runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&catalogURL, "catalog-url", "", "Catalog API base URL (or set CATALOG_URL env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&currency, "currency", "", "ISO 4217 currency of catalog prices")
	rootCmd.PersistentFlags().StringVar(&title, "title", "", "Store title shown in the navbar")

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (or set STOREFRONT_ADDR env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file and environment, then applies the
// flags that were set explicitly.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	override(&cfg.CatalogURL, catalogURL)
	override(&cfg.Addr, addr)
	override(&cfg.LogLevel, logLevel)
	override(&cfg.Currency, currency)
	override(&cfg.Title, title)
	return cfg, nil
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	tmpl, err := storefront.Templates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	reg := prometheus.NewRegistry()
	client := storefront.NewCatalogClient(cfg.CatalogURL, cfg.CatalogTimeout).Instrument(reg)

	sessions := storefront.NewSessions(
		storefront.NewSessionTokens(cfg.SessionSecret),
		cfg.SessionTTL,
		func() *storefront.Page { return storefront.NewPage(client, renderer, log) },
		log,
	).WithLimit(cfg.MaxSessions)
	defer sessions.Close()

	limiter := kit.NewIPRateLimiter(cfg.RateLimit, time.Minute)
	sessionLimiter := kit.NewIPRateLimiter(cfg.SessionRate, time.Minute)

	h := storefront.NewHandler(&storefront.Server{
		Sessions:       sessions,
		Templates:      tmpl,
		Log:            log,
		CatalogURL:     cfg.CatalogURL,
		Limiter:        limiter,
		SessionLimiter: sessionLimiter,
		SecureCookies:  cfg.SecureCookies,
		SessionTTL:     cfg.SessionTTL,
	}, kit.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   cfg.MetricsToken,
	})

	log.Info("storefront configured",
		zap.String("catalog_url", cfg.CatalogURL),
		zap.String("currency", cfg.Currency),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return kit.RunHTTPServer(ctx, cfg.Addr, h, log) })
	g.Go(func() error { return sessions.RunReaper(ctx, reapInterval(cfg.SessionTTL)) })
	g.Go(func() error {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				limiter.Sweep()
				sessionLimiter.Sweep()
			}
		}
	})

	return g.Wait()
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	client := storefront.NewCatalogClient(cfg.CatalogURL, cfg.CatalogTimeout)

	// stderr shares the terminal with the program
	m := tui.New(cmd.Context(), client, renderer, zap.NewNop())

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func newRenderer(cfg config.Config) (storefront.Renderer, error) {
	money, err := storefront.NewMoneyFormat(cfg.Currency)
	if err != nil {
		return storefront.Renderer{}, err
	}
	return storefront.Renderer{Title: cfg.Title, Money: money}, nil
}

// reapInterval checks a few times per TTL so an idle page outlives its TTL by
// a fraction at most.
func reapInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}
