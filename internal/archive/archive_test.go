package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vontta/internal/cache"
	"vontta/internal/domain"
	"vontta/internal/logging"
	"vontta/internal/repo"
)

// memStore is an in-memory store serving both the cache and the archiver.
type memStore struct {
	mu        sync.Mutex
	tasks     map[string]domain.Task
	board     map[string]domain.BoardTask
	history   map[string]domain.WeeklyHistory
	projects  []domain.Project
	profiles  []domain.Profile
	failWrite bool
	failTable string
	failList  bool
}

func newMemStore() *memStore {
	return &memStore{
		tasks:   map[string]domain.Task{},
		board:   map[string]domain.BoardTask{},
		history: map[string]domain.WeeklyHistory{},
	}
}

func (m *memStore) ListTasks(ctx context.Context, _ repo.TaskFilters) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errors.New("connection reset")
	}
	out := []domain.Task{}
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListBoardTasks(ctx context.Context, _ string) ([]domain.BoardTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.BoardTask{}
	for _, b := range m.board {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListHistory(ctx context.Context) ([]domain.WeeklyHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.WeeklyHistory{}
	for _, h := range m.history {
		out = append(out, h)
	}
	return out, nil
}

func (m *memStore) ListSectors(ctx context.Context) ([]domain.Sector, error) {
	return []domain.Sector{}, nil
}

func (m *memStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return append([]domain.Project{}, m.projects...), nil
}

func (m *memStore) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return append([]domain.Profile{}, m.profiles...), nil
}

func (m *memStore) LatestActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	return []domain.ActivityLog{}, nil
}

func (m *memStore) InsertHistory(ctx context.Context, h domain.WeeklyHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errors.New("disk full")
	}
	// Store an encoded copy so later mutation of h cannot leak in.
	raw, _ := json.Marshal(h)
	var stored domain.WeeklyHistory
	_ = json.Unmarshal(raw, &stored)
	m.history[h.ID] = stored
	return nil
}

func (m *memStore) DeleteByIDs(ctx context.Context, table string, ids []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTable == table {
		return 0, errors.New("network down")
	}
	var n int64
	for _, id := range ids {
		switch table {
		case repo.TableTasks:
			if _, ok := m.tasks[id]; ok {
				delete(m.tasks, id)
				n++
			}
		case repo.TableBoardTasks:
			if _, ok := m.board[id]; ok {
				delete(m.board, id)
				n++
			}
		}
	}
	return n, nil
}

func (m *memStore) UpdateHistoryTitle(ctx context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.history[id]
	if !ok {
		return repo.ErrNotFound
	}
	h.Title = &title
	m.history[id] = h
	return nil
}

func (m *memStore) GetHistory(ctx context.Context, id string) (domain.WeeklyHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.history[id]
	if !ok {
		return domain.WeeklyHistory{}, repo.ErrNotFound
	}
	return h, nil
}

type recordingAuditor struct {
	entries []string
}

func (r *recordingAuditor) Append(ctx context.Context, tx *sql.Tx, action, userID, description string) error {
	r.entries = append(r.entries, action+" "+userID+" "+description)
	return nil
}

var closeTime = time.Date(2024, 10, 11, 21, 0, 0, 0, time.UTC) // Friday

func newArchiver(t *testing.T, store *memStore) (Archiver, *cache.Cache, *recordingAuditor) {
	t.Helper()
	c := cache.New(store)
	require.NoError(t, c.Refresh(context.Background()))
	audit := &recordingAuditor{}
	return Archiver{
		Store:  store,
		Cache:  c,
		Audit:  audit,
		Logger: logging.Discard(),
		Now:    func() time.Time { return closeTime },
		NewID:  func() string { return "h1" },
	}, c, audit
}

func seedWeek(store *memStore) {
	store.tasks["A"] = domain.Task{ID: "A", ProjectID: "p1", CollaboratorID: "u1", Status: domain.StatusCompleted, HoursDedicated: "01:00", PlannedActivity: "a"}
	store.tasks["B"] = domain.Task{ID: "B", ProjectID: "p1", CollaboratorID: "u1", Status: domain.StatusPending, HoursDedicated: "02:00", PlannedActivity: "b"}
	store.board["C"] = domain.BoardTask{ID: "C", Title: "card", Status: "TODO", MemberIDs: []string{"u1"}, Subtasks: []domain.Subtask{{ID: "s1", Title: "x"}}}
}

func TestCloseWeekArchivesAndClears(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, c, audit := newArchiver(t, store)

	var notified []cache.Change
	c.Subscribe(func(ch cache.Change) { notified = append(notified, ch) })

	res, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, res.Archived)
	assert.True(t, res.FullyClosed())
	assert.Equal(t, "h1", res.HistoryID)

	require.Len(t, store.history, 1)
	h := store.history["h1"]
	assert.Equal(t, "03:00", h.TotalHours)
	assert.Equal(t, 1, h.TasksCompleted)
	assert.Equal(t, 1, h.TasksPending)
	assert.Nil(t, h.Title)
	assert.Equal(t, h.StartDate, h.EndDate)
	assert.Equal(t, "2024-10-11T21:00:00Z", h.CreatedAt)
	require.Len(t, h.Tasks, 2)
	assert.Equal(t, "A", h.Tasks[0].ID)
	assert.Equal(t, "B", h.Tasks[1].ID)
	require.Len(t, h.BoardTasks, 1)
	assert.Equal(t, "C", h.BoardTasks[0].ID)

	assert.Empty(t, c.Tasks())
	assert.Empty(t, c.BoardTasks())
	assert.Len(t, c.History(), 1)
	assert.Len(t, notified, 1)
	assert.Equal(t, []string{"DELETE admin " + ClosureDescription}, audit.entries)
}

func TestCloseWeekSnapshotIsDeepCopy(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, _, _ := newArchiver(t, store)
	var inserted domain.WeeklyHistory
	spy := &spyStore{memStore: store, onInsert: func(h domain.WeeklyHistory) { inserted = h }}
	a.Store = spy

	_, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)

	// Mutating the live source after the fact must not reach the record.
	store.mu.Lock()
	store.board["C2"] = domain.BoardTask{ID: "C2"}
	store.mu.Unlock()
	require.Len(t, inserted.BoardTasks, 1)
	inserted.BoardTasks[0].MemberIDs[0] = "changed"
	assert.Equal(t, "u1", store.history["h1"].BoardTasks[0].MemberIDs[0])
}

type spyStore struct {
	*memStore
	onInsert func(domain.WeeklyHistory)
}

func (s *spyStore) InsertHistory(ctx context.Context, h domain.WeeklyHistory) error {
	if err := s.memStore.InsertHistory(ctx, h); err != nil {
		return err
	}
	s.onInsert(h)
	return nil
}

func TestCloseWeekArchiveFailureLeavesLiveData(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, c, audit := newArchiver(t, store)
	store.failWrite = true

	_, err := a.CloseWeek(context.Background(), "admin")
	require.Error(t, err)
	assert.Empty(t, store.history)
	assert.Len(t, store.tasks, 2)
	assert.Len(t, store.board, 1)
	assert.Len(t, c.Tasks(), 2)
	assert.Empty(t, audit.entries)
}

func TestCloseWeekPartialCleanup(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, c, _ := newArchiver(t, store)
	store.failTable = repo.TableTasks

	res, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, res.Archived)
	assert.False(t, res.Cleanup.TasksDeleted)
	assert.True(t, res.Cleanup.BoardTasksDeleted)
	assert.False(t, res.FullyClosed())
	assert.Len(t, c.Tasks(), 2)
	assert.Empty(t, c.BoardTasks())
}

func TestCloseWeekOnlyDeletesCapturedIDs(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, _, _ := newArchiver(t, store)
	// Created while the record is being written, after the snapshot.
	a.Store = &spyStore{memStore: store, onInsert: func(domain.WeeklyHistory) {
		store.mu.Lock()
		store.tasks["late"] = domain.Task{ID: "late", Status: domain.StatusPending}
		store.mu.Unlock()
	}}

	_, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)
	assert.Contains(t, store.tasks, "late")
	assert.Len(t, store.history["h1"].Tasks, 2)
}

func TestCloseWeekRereadsRowsMissingFromCache(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, _, _ := newArchiver(t, store)
	// Written by another process; this cache never heard of it.
	store.tasks["D"] = domain.Task{ID: "D", Status: domain.StatusPending, HoursDedicated: "05:00"}

	res, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, res.FullyClosed())
	assert.Equal(t, "08:00", res.TotalHours)
	assert.Len(t, store.history["h1"].Tasks, 3)
	assert.Empty(t, store.tasks)
}

func TestCloseWeekFailsWhenLiveReadFails(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, _, audit := newArchiver(t, store)
	store.failList = true

	_, err := a.CloseWeek(context.Background(), "admin")
	require.Error(t, err)
	assert.Empty(t, store.history)
	assert.Len(t, store.tasks, 2)
	assert.Empty(t, audit.entries)
}

func TestCloseWeekCleanupSurvivesCancel(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, c, audit := newArchiver(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Store = &spyStore{memStore: store, onInsert: func(domain.WeeklyHistory) { cancel() }}

	res, err := a.CloseWeek(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, res.FullyClosed())
	assert.Empty(t, store.tasks)
	assert.Empty(t, store.board)
	assert.Empty(t, c.Tasks())
	assert.Len(t, audit.entries, 1)

	// A second close archives nothing from the first week.
	a.Store = store
	a.NewID = func() string { return "h2" }
	_, err = a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)
	assert.Empty(t, store.history["h2"].Tasks)
}

func TestCloseWeekEmptyStillArchives(t *testing.T) {
	store := newMemStore()
	a, _, _ := newArchiver(t, store)

	res, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, res.FullyClosed())
	assert.Equal(t, "00:00", store.history["h1"].TotalHours)
	assert.Empty(t, store.history["h1"].Tasks)
}

func TestCloseWeekMondayPeriodStart(t *testing.T) {
	store := newMemStore()
	a, _, _ := newArchiver(t, store)
	a.PeriodStart = PeriodMonday
	a.Location = time.FixedZone("BRT", -3*60*60)

	_, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)
	h := store.history["h1"]
	assert.Equal(t, "2024-10-07T03:00:00Z", h.StartDate)
	assert.Equal(t, "2024-10-11T21:00:00Z", h.EndDate)
}

func TestMondayOf(t *testing.T) {
	sunday := time.Date(2024, 10, 13, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC), MondayOf(sunday, time.UTC))
	monday := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, MondayOf(monday, time.UTC))
}

func TestRenameHistoryOnlyChangesTitle(t *testing.T) {
	store := newMemStore()
	seedWeek(store)
	a, c, audit := newArchiver(t, store)
	_, err := a.CloseWeek(context.Background(), "admin")
	require.NoError(t, err)

	before, _ := json.Marshal(struct {
		Tasks []domain.Task
		Board []domain.BoardTask
	}{store.history["h1"].Tasks, store.history["h1"].BoardTasks})

	h, err := a.RenameHistory(context.Background(), "admin", "h1", "  Sprint 42 ")
	require.NoError(t, err)
	require.NotNil(t, h.Title)
	assert.Equal(t, "Sprint 42", *h.Title)

	after, _ := json.Marshal(struct {
		Tasks []domain.Task
		Board []domain.BoardTask
	}{store.history["h1"].Tasks, store.history["h1"].BoardTasks})
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, "Sprint 42", *c.History()[0].Title)
	assert.Len(t, audit.entries, 2)
}

func TestRenameHistoryErrors(t *testing.T) {
	a, _, _ := newArchiver(t, newMemStore())
	_, err := a.RenameHistory(context.Background(), "admin", "missing", "x")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = a.RenameHistory(context.Background(), "admin", "missing", "   ")
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
