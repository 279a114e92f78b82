package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"vontta/internal/config"
	"vontta/internal/db"
	"vontta/internal/domain"
	"vontta/internal/engine"
	"vontta/internal/migrate"
)

// Runtime is an opened workspace: migrated database, live config and an
// engine with a warm cache.
type Runtime struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Live
	Engine    engine.Engine
}

// Open prepares the workspace for use by the CLI and the server. The config
// file is optional; without it the defaults apply.
func Open(ctx context.Context, workspace string, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.LoadOrDefault(workspace)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	live := config.NewLive(workspace, cfg, logger.With("component", "config"))
	e := engine.New(conn, live, logger)
	if key := os.Getenv("VONTTA_GEMINI_API_KEY"); key != "" {
		e = e.WithAssistant(key)
	}
	if err := e.Load(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("load cache: %w", err)
	}
	return &Runtime{Workspace: workspace, DB: conn, Config: live, Engine: e}, nil
}

func (r *Runtime) Close() error {
	return r.DB.Close()
}

// InitResult describes what Bootstrap created.
type InitResult struct {
	ConfigWritten bool           `json:"config_written"`
	Admin         domain.Profile `json:"admin"`
	AdminCreated  bool           `json:"admin_created"`
}

// WriteDefaultConfig writes vontta.yml unless it already exists. force
// overwrites it.
func WriteDefaultConfig(workspace string, force bool) (bool, error) {
	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// Bootstrap seeds a fresh workspace: the first profile becomes admin and the
// default assistant channel is created. Running it again is harmless.
func Bootstrap(ctx context.Context, e engine.Engine, admin engine.ProfileInput) (InitResult, error) {
	var res InitResult
	n, err := e.Repo.CountProfiles(ctx)
	if err != nil {
		return res, err
	}
	if n == 0 {
		p, err := e.CreateProfile(ctx, "", admin)
		if err != nil {
			return res, fmt.Errorf("create admin: %w", err)
		}
		res.Admin, res.AdminCreated = p, true
	} else if admin.ID != "" {
		if p, err := e.GetProfile(ctx, admin.ID); err == nil {
			res.Admin = p
		}
	}
	if err := e.Chat.EnsureDefaultChannel(ctx); err != nil {
		return res, fmt.Errorf("default channel: %w", err)
	}
	return res, nil
}
