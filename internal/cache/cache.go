// Package cache mirrors store tables in memory for readers that need a
// consistent snapshot, and tells subscribers when tables were re-read.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"vontta/internal/domain"
	"vontta/internal/repo"
)

type Table string

const (
	TableTasks      Table = "tasks"
	TableBoardTasks Table = "board_tasks"
	TableHistory    Table = "weekly_history"
	TableSectors    Table = "sectors"
	TableProjects   Table = "projects"
	TableProfiles   Table = "profiles"
	TableActivity   Table = "activity_logs"

	// Chat tables are not mirrored; changes to them are only announced.
	TableChatChannels Table = "chat_channels"
	TableChatMessages Table = "chat_messages"
)

// AllTables lists every mirrored table in refresh order.
var AllTables = []Table{TableSectors, TableProjects, TableProfiles, TableTasks, TableBoardTasks, TableHistory, TableActivity}

// DefaultActivityLimit is how many audit entries are mirrored.
const DefaultActivityLimit = 20

// Store is the read side the cache fetches from.
type Store interface {
	ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error)
	ListBoardTasks(ctx context.Context, status string) ([]domain.BoardTask, error)
	ListHistory(ctx context.Context) ([]domain.WeeklyHistory, error)
	ListSectors(ctx context.Context) ([]domain.Sector, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	LatestActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}

// Change describes one completed refresh.
type Change struct {
	Tables []Table
	At     time.Time
}

// Has reports whether t was refreshed.
func (c Change) Has(t Table) bool {
	for _, x := range c.Tables {
		if x == t {
			return true
		}
	}
	return false
}

type Listener func(Change)

type Option func(*Cache)

func WithActivityLimit(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.activityLimit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is safe for concurrent use. Getters return copies; callers may keep
// and modify them freely.
type Cache struct {
	store         Store
	activityLimit int
	now           func() time.Time

	mu         sync.RWMutex
	tasks      []domain.Task
	boardTasks []domain.BoardTask
	history    []domain.WeeklyHistory
	sectors    []domain.Sector
	projects   []domain.Project
	profiles   []domain.Profile
	activity   []domain.ActivityLog

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:         store,
		activityLimit: DefaultActivityLimit,
		now:           time.Now,
		listeners:     map[int]Listener{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh re-reads the named tables (all when none given) and then notifies
// subscribers once. A table that fails to load keeps its previous contents;
// the failures are joined into the returned error and that table is left out
// of the notification.
func (c *Cache) Refresh(ctx context.Context, tables ...Table) error {
	if len(tables) == 0 {
		tables = AllTables
	}
	var errs []error
	var refreshed []Table
	seen := map[Table]bool{}
	for _, t := range tables {
		if seen[t] {
			continue
		}
		seen[t] = true
		if err := c.load(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", t, err))
			continue
		}
		refreshed = append(refreshed, t)
	}
	if len(refreshed) > 0 {
		c.notify(Change{Tables: refreshed, At: c.now()})
	}
	return errors.Join(errs...)
}

func (c *Cache) load(ctx context.Context, t Table) error {
	switch t {
	case TableTasks:
		items, err := c.store.ListTasks(ctx, repo.TaskFilters{})
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.tasks = items
		c.mu.Unlock()
	case TableBoardTasks:
		items, err := c.store.ListBoardTasks(ctx, "")
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.boardTasks = items
		c.mu.Unlock()
	case TableHistory:
		items, err := c.store.ListHistory(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.history = items
		c.mu.Unlock()
	case TableSectors:
		items, err := c.store.ListSectors(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.sectors = items
		c.mu.Unlock()
	case TableProjects:
		items, err := c.store.ListProjects(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.projects = items
		c.mu.Unlock()
	case TableProfiles:
		items, err := c.store.ListProfiles(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.profiles = items
		c.mu.Unlock()
	case TableActivity:
		items, err := c.store.LatestActivity(ctx, c.activityLimit)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.activity = items
		c.mu.Unlock()
	default:
		return fmt.Errorf("unknown table %q", t)
	}
	return nil
}

// Announce notifies subscribers that tables changed without re-reading
// anything. It is meant for tables the cache does not mirror.
func (c *Cache) Announce(tables ...Table) {
	if len(tables) == 0 {
		return
	}
	c.notify(Change{Tables: append([]Table{}, tables...), At: c.now()})
}

// Subscribe registers fn for every later refresh. Listeners run on the
// refreshing goroutine, in registration order, after the cache is updated.
func (c *Cache) Subscribe(fn Listener) (unsubscribe func()) {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.lmu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			delete(c.listeners, id)
			c.lmu.Unlock()
		})
	}
}

func (c *Cache) notify(ch Change) {
	c.lmu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.lmu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

func (c *Cache) Tasks() []domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Task{}, c.tasks...)
}

func (c *Cache) BoardTasks() []domain.BoardTask {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneBoard(c.boardTasks)
}

// Snapshot returns tasks and board tasks read under one lock.
func (c *Cache) Snapshot() ([]domain.Task, []domain.BoardTask) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Task{}, c.tasks...), cloneBoard(c.boardTasks)
}

func (c *Cache) History() []domain.WeeklyHistory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.WeeklyHistory, len(c.history))
	for i, h := range c.history {
		h.Tasks = append([]domain.Task{}, h.Tasks...)
		h.BoardTasks = cloneBoard(h.BoardTasks)
		if h.Title != nil {
			title := *h.Title
			h.Title = &title
		}
		out[i] = h
	}
	return out
}

func (c *Cache) Sectors() []domain.Sector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Sector{}, c.sectors...)
}

func (c *Cache) Projects() []domain.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Project{}, c.projects...)
}

func (c *Cache) Profiles() []domain.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Profile{}, c.profiles...)
}

func (c *Cache) Activity() []domain.ActivityLog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.ActivityLog{}, c.activity...)
}

// ProjectName resolves id against the mirrored projects.
func (c *Cache) ProjectName(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.projects {
		if p.ID == id {
			return p.Name, true
		}
	}
	return "", false
}

// UserName resolves id against the mirrored profiles.
func (c *Cache) UserName(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.profiles {
		if p.ID == id {
			return p.Name, true
		}
	}
	return "", false
}

func cloneBoard(in []domain.BoardTask) []domain.BoardTask {
	out := make([]domain.BoardTask, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
