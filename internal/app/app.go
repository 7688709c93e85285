package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ledass/Auto-accepting-repo/internal/audit"
	"github.com/ledass/Auto-accepting-repo/internal/broadcast"
	"github.com/ledass/Auto-accepting-repo/internal/config"
	"github.com/ledass/Auto-accepting-repo/internal/relay"
	"github.com/ledass/Auto-accepting-repo/internal/store"
	"github.com/ledass/Auto-accepting-repo/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	audit   *audit.Notifier
}

// New authorizes the bot. A rejected token is the one unrecoverable startup
// failure.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Info("bot authorized", zap.String("username", bot.Self.UserName))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting auto-accept bot",
		zap.String("store", a.cfg.StoreDriver),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := store.Open(ctx, a.cfg.StoreDriver, a.cfg.DBPath, a.cfg.UsersFile)
	if err != nil {
		a.log.Error("open store failed", zap.Error(err))
		return err
	}
	a.repo = repo
	if n, err := repo.Count(ctx); err == nil {
		a.log.Info("store ready", zap.Int("users", n))
	}

	a.wire()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.router.Start(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = telegram.AllowedUpdates
	updCh := a.bot.GetUpdatesChan(u)

	a.notifySystemd(daemon.SdNotifyReady)
	a.log.Info("bot started")
	a.audit.Notify(relay.AuditStarted)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.notifySystemd(daemon.SdNotifyStopping)
			a.bot.StopReceivingUpdates()

			// An in-flight broadcast always finishes.
			a.router.Wait()

			// Create a short-lived shutdown context and cancel it immediately after use.
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if err := a.repo.Close(); err != nil {
				a.log.Warn("store close error", zap.Error(err))
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// wire builds the service graph around the opened store. Admin and audit
// misconfiguration is reported here and degrades instead of failing.
func (a *App) wire() {
	admin, err := a.cfg.Admin()
	if err != nil {
		a.log.Warn("admin commands disabled: invalid ADMIN_ID",
			zap.String("raw", a.cfg.AdminIDRaw), zap.Error(err))
	} else {
		a.log.Info("admin loaded", zap.Int64("admin_id", int64(admin.ID)))
	}

	dest, err := a.cfg.AuditDestination()
	if err != nil {
		a.log.Warn("audit disabled: invalid LOG_CHANNEL_ID",
			zap.String("raw", a.cfg.LogChannelRaw), zap.Error(err))
	}

	client := telegram.NewClient(a.bot)
	a.audit = audit.New(dest, client, a.log.Named("audit"))
	engine := broadcast.New(a.repo, client, a.log.Named("broadcast"))
	svc := relay.New(a.repo, admin, engine, client, a.audit, a.log.Named("relay"))
	a.router = telegram.NewRouter(a.bot, svc, a.log.Named("telegram"), a.bot.Self.UserName, a.cfg.BroadcastQueue)
}

func (a *App) notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		a.log.Warn("systemd notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		a.log.Debug("systemd notified", zap.String("state", state))
	}
}
