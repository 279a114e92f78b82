package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"vontta/internal/cache"
	"vontta/internal/config"
	"vontta/internal/domain"
	"vontta/internal/engine"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
	webhookAttempts        = 3
	webhookRetryDelay      = 200 * time.Millisecond
)

// WebhookDispatcher forwards new activity_logs rows to the configured
// webhooks. Each hook keeps its own cursor, keyed by URL, so a config reload
// that adds a hook starts it at the current head instead of replaying history.
// An entry that still fails after the retry budget is logged and skipped.
type WebhookDispatcher struct {
	engine     engine.Engine
	logger     *slog.Logger
	client     *http.Client
	interval   time.Duration
	retryDelay time.Duration
	kick       chan struct{}

	mu      sync.Mutex
	cursors map[string]int64
}

func NewWebhookDispatcher(e engine.Engine, logger *slog.Logger) *WebhookDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookDispatcher{
		engine:     e,
		logger:     logger.With("component", "webhooks"),
		client:     &http.Client{},
		interval:   defaultWebhookInterval,
		retryDelay: webhookRetryDelay,
		kick:       make(chan struct{}, 1),
		cursors:    make(map[string]int64),
	}
}

// Run polls until ctx is done. Activity changes announced by the cache wake
// it up early. Each pass first reloads the engine cache when another process
// has written to the workspace.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	unsub := d.engine.Subscribe(func(c cache.Change) {
		if slices.Contains(c.Tables, cache.TableActivity) {
			select {
			case d.kick <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		if _, err := d.engine.SyncExternal(ctx); err != nil && ctx.Err() == nil {
			d.logger.Warn("sync external writes failed", "error", err)
		}
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
	}
}

// DispatchOnce delivers pending entries to every enabled hook.
func (d *WebhookDispatcher) DispatchOnce(ctx context.Context) {
	var hooks []config.WebhookConfig
	if d.engine.Config != nil {
		hooks = d.engine.Config.Get().Webhooks
	}
	for _, hook := range hooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		d.dispatch(ctx, hook)
	}
}

func (d *WebhookDispatcher) dispatch(ctx context.Context, hook config.WebhookConfig) {
	cursor, err := d.cursorFor(ctx, hook.URL)
	if err != nil {
		d.logger.Error("init cursor failed", "url", hook.URL, "error", err)
		return
	}
	logs, err := d.engine.Repo.ActivityAfter(ctx, cursor, defaultWebhookBatch)
	if err != nil {
		d.logger.Error("fetch activity failed", "error", err)
		return
	}
	for _, entry := range logs {
		if len(hook.Actions) > 0 && !slices.Contains(hook.Actions, entry.Action) {
			d.setCursor(hook.URL, entry.ID)
			continue
		}
		if err := d.deliver(ctx, hook, entry); err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("delivery dropped", "url", hook.URL, "activity_id", entry.ID, "attempts", webhookAttempts, "error", err)
		}
		d.setCursor(hook.URL, entry.ID)
	}
}

func (d *WebhookDispatcher) cursorFor(ctx context.Context, url string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.cursors[url]; ok {
		return cur, nil
	}
	cur, err := d.engine.Repo.LatestActivityID(ctx)
	if err != nil {
		return 0, err
	}
	d.cursors[url] = cur
	return cur, nil
}

func (d *WebhookDispatcher) setCursor(url string, id int64) {
	d.mu.Lock()
	d.cursors[url] = id
	d.mu.Unlock()
}

func (d *WebhookDispatcher) deliver(ctx context.Context, hook config.WebhookConfig, entry domain.ActivityLog) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	timeout := defaultWebhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	r := retry.New[struct{}](retry.Config{
		MaxAttempts:   webhookAttempts,
		InitialDelay:  d.retryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	_, err = r.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.post(ctx, hook, entry, body, timeout)
	})
	return err
}

func (d *WebhookDispatcher) post(ctx context.Context, hook config.WebhookConfig, entry domain.ActivityLog, body []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vontta-Event", entry.Action)
	req.Header.Set("X-Vontta-Delivery", strconv.FormatInt(entry.ID, 10))
	if hook.Secret != "" {
		req.Header.Set("X-Vontta-Secret", hook.Secret)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
