package app

import (
	"context"
	"fmt"
	"time"

	igcfg "igbridge/internal/config"
	"igbridge/internal/engine"
	"igbridge/internal/gateway/exchange"
	"igbridge/internal/gateway/ig"
	"igbridge/internal/gateway/notifier"
	"igbridge/internal/instrument"
	webhookhttp "igbridge/internal/transport/http/webhook"
)

// AppBuilder assembles the application. The fn fields exist so tests can
// substitute fakes for the venue and the HTTP server.
type AppBuilder struct {
	cfg *igcfg.Config

	venueFn    func(igcfg.IGConfig) (exchange.VenueGateway, error)
	catalogFn  func(igcfg.InstrumentsConfig) (*instrument.Catalog, error)
	notifierFn func(igcfg.NotifyConfig) notifier.TextNotifier
	httpFn     func(igcfg.AppConfig, *engine.Engine, *instrument.Catalog) (*webhookhttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *igcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		venueFn:    buildVenue,
		catalogFn:  buildCatalog,
		notifierFn: buildNotifier,
		httpFn:     buildWebhookServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithVenue overrides the venue gateway. Used by tests.
func WithVenue(v exchange.VenueGateway) AppBuilderOption {
	return func(b *AppBuilder) {
		b.venueFn = func(igcfg.IGConfig) (exchange.VenueGateway, error) { return v, nil }
	}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	venue, err := b.venueFn(cfg.IG)
	if err != nil {
		return nil, fmt.Errorf("build venue gateway: %w", err)
	}
	catalog, err := b.catalogFn(cfg.Instruments)
	if err != nil {
		return nil, fmt.Errorf("build instrument catalog: %w", err)
	}
	eng, err := engine.New(engine.Params{
		Token:           cfg.Webhook.Token,
		Catalog:         catalog,
		Venue:           venue,
		ConfirmAttempts: cfg.Engine.ConfirmAttempts,
		ConfirmBackoff:  time.Duration(cfg.Engine.ConfirmBackoffMS) * time.Millisecond,
		Notifier:        b.notifierFn(cfg.Notify),
	})
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	srv, err := b.httpFn(cfg.App, eng, catalog)
	if err != nil {
		return nil, fmt.Errorf("build webhook server: %w", err)
	}

	app := &App{cfg: cfg, httpSrv: srv}
	if cfg.IG.EnsureTrailingStops {
		if igClient, ok := venue.(*ig.Client); ok {
			app.startup = append(app.startup, startupTask{
				name: "ensure-trailing-stops",
				run:  igClient.EnsureTrailingStops,
			})
		}
	}
	return app, nil
}

func buildVenue(cfg igcfg.IGConfig) (exchange.VenueGateway, error) {
	return ig.NewClient(cfg)
}

func buildCatalog(cfg igcfg.InstrumentsConfig) (*instrument.Catalog, error) {
	if cfg.Path == "" {
		return instrument.NewCatalog(instrument.DefaultRules())
	}
	registry, err := instrument.NewRegistry(cfg.Path)
	if err != nil {
		return nil, err
	}
	return registry.Catalog(), nil
}

func buildNotifier(cfg igcfg.NotifyConfig) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		return nil
	}
	return &executionNotifier{inner: notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)}
}

func buildWebhookServer(cfg igcfg.AppConfig, eng *engine.Engine, catalog *instrument.Catalog) (*webhookhttp.Server, error) {
	return webhookhttp.NewServer(webhookhttp.ServerConfig{
		Addr:        cfg.HTTPAddr,
		Processor:   eng,
		Instruments: catalog,
	})
}

// executionNotifier wraps raw execution notes in the house Telegram format.
type executionNotifier struct {
	inner notifier.TextNotifier
}

func (n *executionNotifier) SendText(text string) error {
	msg := notifier.StructuredMessage{
		Icon:      "📡",
		Title:     "igbridge execution",
		Sections:  []notifier.MessageSection{{Lines: []string{text}}},
		Timestamp: time.Now(),
	}
	return n.inner.SendText(msg.RenderMarkdown())
}
