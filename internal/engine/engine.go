package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"vontta/internal/archive"
	"vontta/internal/cache"
	"vontta/internal/chat"
	"vontta/internal/config"
	"vontta/internal/domain"
	"vontta/internal/engine/auth"
	"vontta/internal/events"
	"vontta/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Auth    auth.Service
	Config  *config.Live
	Cache   *cache.Cache
	Archive archive.Archiver
	Chat    chat.Service
	Logger  *slog.Logger
	Now     func() time.Time
}

func New(db *sql.DB, live *config.Live, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if live == nil {
		live = config.NewLive("", nil, logger)
	}
	r := repo.Repo{DB: db}
	c := cache.New(r)
	ev := events.Writer{DB: db}
	e := Engine{
		DB:     db,
		Repo:   r,
		Events: ev,
		Auth:   auth.Service{Profiles: r},
		Config: live,
		Cache:  c,
		Archive: archive.Archiver{
			Store:  r,
			Cache:  c,
			Audit:  ev,
			Logger: logger.With("component", "archive"),
		},
		Logger: logger,
		Now:    time.Now,
	}
	e.Chat = chat.Service{
		Store: r,
		Settings: func() chat.Settings {
			cfg := live.Get()
			return chat.Settings{HistoryLimit: cfg.Chat.HistoryLimit, SystemInstruction: cfg.Chat.SystemInstruction}
		},
		UserName: func(id string) string {
			name, _ := c.UserName(id)
			return name
		},
		Logger: logger.With("component", "chat"),
	}
	return e
}

// WithAssistant enables chat replies through Gemini using the configured
// model, attempts and timeout. An empty key leaves the assistant disabled.
func (e Engine) WithAssistant(apiKey string) Engine {
	if apiKey == "" {
		e.Chat.Provider = nil
		return e
	}
	cfg := e.cfg()
	e.Chat.Provider = chat.NewResilientProvider(
		chat.NewGeminiProvider(cfg.Chat.Model, apiKey),
		cfg.Chat.MaxAttempts, time.Second, cfg.ChatTimeout())
	return e
}

// Load fills the cache from the database.
func (e Engine) Load(ctx context.Context) error {
	return e.Cache.Refresh(ctx)
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// audit is the event writer stamped with the engine clock.
func (e Engine) audit() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) cfg() *config.Config {
	if e.Config == nil {
		return config.Default()
	}
	return e.Config.Get()
}

// Location is the team time zone.
func (e Engine) Location() *time.Location {
	return e.cfg().Location()
}

// today is the current calendar date in the team time zone.
func (e Engine) today() string {
	return e.now().In(e.cfg().Location()).Format(domain.DateLayout)
}

func (e Engine) actor(ctx context.Context, actorID string) (domain.Profile, error) {
	return e.Auth.Actor(ctx, actorID)
}

func (e Engine) admin(ctx context.Context, actorID string) (domain.Profile, error) {
	a, err := e.actor(ctx, actorID)
	if err != nil {
		return a, err
	}
	return a, auth.RequireAdmin(a)
}

// write runs fn in a transaction, appends one audit entry inside it, and
// after commit refreshes the cache tables the change touched.
func (e Engine) write(ctx context.Context, tables []cache.Table, action, actorID, description string, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	if err := e.audit().Append(ctx, tx, action, actorID, description); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	e.refresh(ctx, tables...)
	return nil
}

func (e Engine) refresh(ctx context.Context, tables ...cache.Table) {
	tables = append(tables, cache.TableActivity)
	if err := e.Cache.Refresh(context.WithoutCancel(ctx), tables...); err != nil {
		e.Logger.Warn("cache refresh failed", "tables", tables, "error", err)
	}
}
