package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/trilokanam-ux/trilokana-telegram-bot/core/config"
	coredatabase "github.com/trilokanam-ux/trilokana-telegram-bot/core/database"
	coretelegram "github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram"
	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/commands"
	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/router"
	"github.com/trilokanam-ux/trilokana-telegram-bot/core/telegram/sender"
	"github.com/trilokanam-ux/trilokana-telegram-bot/leads"
	"github.com/trilokanam-ux/trilokana-telegram-bot/sink"
	sinkdb "github.com/trilokanam-ux/trilokana-telegram-bot/sink/database"
	"github.com/trilokanam-ux/trilokana-telegram-bot/sink/sheets"
)

// App owns the wired application components and their lifecycle.
type App struct {
	cfg *coreconfig.Config

	db         *sqlx.DB
	store      *leads.MemoryStore
	coord      *leads.Coordinator
	engine     *leads.Engine
	gateway    *telegramGateway
	dispatcher *sender.Dispatcher
}

// Bootstrap builds the record sink, session store, and dialogue engine
// from configuration. The caller is expected to have initialized logging.
func Bootstrap(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	a := &App{cfg: cfg}

	recordSink, err := a.buildSink(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.dispatcher = sender.NewDispatcher(sender.Options{})
	a.gateway = newTelegramGateway(a.dispatcher)

	ttl := time.Duration(cfg.Leads.SessionTTLMinutes) * time.Minute
	a.store = leads.NewMemoryStore(ttl)

	timeout := time.Duration(cfg.Leads.SubmitTimeoutSeconds) * time.Second
	a.coord = leads.NewCoordinator(recordSink, timeout)

	a.engine = leads.NewEngine(leads.Config{
		Options:                cfg.Leads.Options,
		MinPhoneDigits:         cfg.Leads.MinPhoneDigits,
		KeepSessionOnSinkError: cfg.Leads.KeepOnSinkError,
		ContactLink:            cfg.Leads.ContactLink,
	}, a.store, a.coord, a.gateway)

	return a, nil
}

func (a *App) buildSink(ctx context.Context, cfg *coreconfig.Config) (leads.RecordSink, error) {
	switch cfg.Sink.Driver {
	case sink.DriverPostgres:
		if err := coredatabase.RunMigrations(cfg.Database); err != nil {
			return nil, fmt.Errorf("app: migrations failed: %w", err)
		}
		db, err := coredatabase.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("app: database connect failed: %w", err)
		}
		a.db = db
		return sinkdb.New(db), nil
	case sink.DriverSheets:
		s, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.Sink.Sheets.SpreadsheetID,
			Range:           cfg.Sink.Sheets.Range,
			CredentialsJSON: []byte(cfg.Sink.Sheets.CredentialsJSON),
		})
		if err != nil {
			return nil, fmt.Errorf("app: sheets sink init failed: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("app: unknown sink driver %q", cfg.Sink.Driver)
	}
}

// TelegramRunOptions assembles registry, routes, and lifecycle hooks for
// the bot runner.
func (a *App) TelegramRunOptions() coretelegram.RunOptions {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Choose a service and leave your details",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Cancel the current request",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Show lead-capture counters",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(leads.CallbackOption, a.handleOptionCallback)
	_ = reg.RegisterCallback(leads.CallbackConfirm, a.handleConfirmCallback)
	reg.SetTextFallback(a.handleFreeText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.gateway.attach(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.Close()
			return nil
		},
	}
}

// Close releases the session store and database handle.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
