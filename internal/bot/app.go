// Package bot wires the session store, the funnel, the relay and the health
// endpoint into the Telegram runtime.
package bot

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/m3rciful/menacebot/core/bootstrap"
	corecmd "github.com/m3rciful/menacebot/core/cmd"
	coreconfig "github.com/m3rciful/menacebot/core/config"
	"github.com/m3rciful/menacebot/core/database"
	"github.com/m3rciful/menacebot/core/logger"
	coretelegram "github.com/m3rciful/menacebot/core/telegram"
	"github.com/m3rciful/menacebot/core/telegram/sender"
	"github.com/m3rciful/menacebot/core/telegram/state"
	"github.com/m3rciful/menacebot/internal/funnel"
	"github.com/m3rciful/menacebot/internal/health"
	"github.com/m3rciful/menacebot/internal/relay"
	"github.com/m3rciful/menacebot/internal/session"
)

// App holds the infrastructure of one bot process.
type App struct {
	cfg    *coreconfig.Config
	store  session.Store
	health *health.Server
}

// LoadConfig implements corecmd.Options.LoadConfig.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap initializes logging and the session store.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	dbCfg := database.FromCore(cfg)

	var migrations fs.FS
	if dbCfg.Driver != database.DriverMemory {
		var err error
		if migrations, err = session.Migrations(dbCfg.Driver); err != nil {
			return nil, err
		}
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg,
		Database:   dbCfg,
		Migrations: migrations,
	})
	if err != nil {
		return nil, err
	}

	var store session.Store = session.NewMemoryStore()
	if res.DB != nil {
		store = session.NewSQLStore(res.DB)
	}
	logger.Info(context.Background(), logger.CompStore, "store.ready",
		slog.String("status", "ok"),
		slog.String("driver", dbCfg.Driver),
		slog.String("target", dbCfg.Target()),
	)

	return &App{
		cfg:    cfg,
		store:  store,
		health: health.New(int(cfg.Health.Port)),
	}, nil
}

// TelegramRunOptions builds the bot, its services and routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := a.cfg
	tb, err := coretelegram.NewBot(cfg)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}
	out := sender.NewBot(tb)
	dispatcher := sender.NewDispatcher(sender.Options{
		QueueSize:  cfg.Sender.QueueSize,
		MaxRetries: cfg.Sender.MaxRetries,
	})

	adminID := cfg.Telegram.AdminChatID.Int64()
	if !cfg.AdminEnabled() {
		logger.Warn(context.Background(), logger.CompRelay, "relay.disabled",
			slog.String("status", "skip"),
			slog.String("reason", "ADMIN_CHAT_ID not set"),
		)
	}
	rel := relay.NewRouter(out, relay.NewRoute(adminID, a.store), relay.Options{
		AdminChatID: adminID,
		Dispatcher:  dispatcher,
	})
	machine := funnel.New(a.store, out, rel, funnel.Options{
		AffiliateURL:  cfg.Links.AffiliateURL,
		MiniAppURL:    cfg.Links.MiniAppURL,
		AdvantagesURL: cfg.Links.AdvantagesURL,
		BannerPath:    cfg.Banner.Path,
		BannerURL:     cfg.Banner.URL,
	})

	reg := coretelegram.NewRegistry()
	routes := Routes(NewHandlers(machine, rel, out), reg, state.NewManager(machine), adminID)

	return coretelegram.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Bot:         tb,
		Dispatcher:  dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ coretelegram.Runtime) error {
	a.health.Start(ctx)
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("bot: session store unavailable: %w", err)
	}
	return nil
}

func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	if err := a.health.Shutdown(ctx); err != nil {
		logger.Warn(ctx, logger.CompHealth, "health.shutdown",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	return a.store.Close()
}
