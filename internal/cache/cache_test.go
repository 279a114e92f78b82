package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vontta/internal/domain"
	"vontta/internal/repo"
)

type fakeStore struct {
	mu       sync.Mutex
	tasks    []domain.Task
	board    []domain.BoardTask
	projects []domain.Project
	profiles []domain.Profile
	sectors  []domain.Sector
	failOn   string
	calls    map[string]int
	limit    int
}

func (f *fakeStore) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if f.failOn == name {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeStore) ListTasks(ctx context.Context, _ repo.TaskFilters) ([]domain.Task, error) {
	if err := f.hit("tasks"); err != nil {
		return nil, err
	}
	return append([]domain.Task{}, f.tasks...), nil
}

func (f *fakeStore) ListBoardTasks(ctx context.Context, _ string) ([]domain.BoardTask, error) {
	if err := f.hit("board"); err != nil {
		return nil, err
	}
	out := make([]domain.BoardTask, len(f.board))
	for i, b := range f.board {
		out[i] = b.Clone()
	}
	return out, nil
}

func (f *fakeStore) ListHistory(ctx context.Context) ([]domain.WeeklyHistory, error) {
	return []domain.WeeklyHistory{}, f.hit("history")
}

func (f *fakeStore) ListSectors(ctx context.Context) ([]domain.Sector, error) {
	return append([]domain.Sector{}, f.sectors...), f.hit("sectors")
}

func (f *fakeStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return append([]domain.Project{}, f.projects...), f.hit("projects")
}

func (f *fakeStore) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return append([]domain.Profile{}, f.profiles...), f.hit("profiles")
}

func (f *fakeStore) LatestActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
	return []domain.ActivityLog{}, f.hit("activity")
}

func TestRefreshAllNotifiesOnce(t *testing.T) {
	store := &fakeStore{
		tasks:    []domain.Task{{ID: "t1"}},
		projects: []domain.Project{{ID: "p1", Name: "Portal"}},
		profiles: []domain.Profile{{ID: "u1", Name: "Ana"}},
	}
	c := New(store)
	var changes []Change
	c.Subscribe(func(ch Change) { changes = append(changes, ch) })

	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, changes, 1)
	assert.ElementsMatch(t, AllTables, changes[0].Tables)
	assert.Len(t, c.Tasks(), 1)

	name, ok := c.ProjectName("p1")
	assert.True(t, ok)
	assert.Equal(t, "Portal", name)
	_, ok = c.UserName("missing")
	assert.False(t, ok)
}

func TestRefreshSelectedTablesOnly(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	var got Change
	c.Subscribe(func(ch Change) { got = ch })

	require.NoError(t, c.Refresh(context.Background(), TableTasks, TableTasks, TableBoardTasks))
	assert.Equal(t, []Table{TableTasks, TableBoardTasks}, got.Tables)
	assert.True(t, got.Has(TableBoardTasks))
	assert.False(t, got.Has(TableHistory))
	assert.Equal(t, 1, store.calls["tasks"])
	assert.Zero(t, store.calls["history"])
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	store := &fakeStore{tasks: []domain.Task{{ID: "t1"}}}
	c := New(store)
	require.NoError(t, c.Refresh(context.Background(), TableTasks))

	store.tasks = []domain.Task{{ID: "t1"}, {ID: "t2"}}
	store.failOn = "tasks"
	var got Change
	c.Subscribe(func(ch Change) { got = ch })
	err := c.Refresh(context.Background(), TableTasks, TableProjects)
	require.Error(t, err)
	assert.Len(t, c.Tasks(), 1)
	assert.Equal(t, []Table{TableProjects}, got.Tables)
}

func TestGettersReturnIndependentCopies(t *testing.T) {
	store := &fakeStore{
		tasks: []domain.Task{{ID: "t1", Notes: "orig"}},
		board: []domain.BoardTask{{ID: "b1", MemberIDs: []string{"u1"}, Subtasks: []domain.Subtask{{ID: "s1", Title: "x"}}}},
	}
	c := New(store)
	require.NoError(t, c.Refresh(context.Background(), TableTasks, TableBoardTasks))

	tasks := c.Tasks()
	tasks[0].Notes = "changed"
	board := c.BoardTasks()
	board[0].MemberIDs[0] = "u9"
	board[0].Subtasks[0].Completed = true

	assert.Equal(t, "orig", c.Tasks()[0].Notes)
	again := c.BoardTasks()
	assert.Equal(t, "u1", again[0].MemberIDs[0])
	assert.False(t, again[0].Subtasks[0].Completed)
}

func TestReferenceDataAndActivityLimit(t *testing.T) {
	store := &fakeStore{sectors: []domain.Sector{{ID: "s1", Name: "TI"}}}
	c := New(store, WithActivityLimit(5))
	require.NoError(t, c.Refresh(context.Background(), TableSectors, TableActivity))

	sectors := c.Sectors()
	require.Len(t, sectors, 1)
	sectors[0].Name = "changed"
	assert.Equal(t, "TI", c.Sectors()[0].Name)
	assert.Equal(t, 5, store.limit)

	store2 := &fakeStore{}
	require.NoError(t, New(store2, WithActivityLimit(0)).Refresh(context.Background(), TableActivity))
	assert.Equal(t, DefaultActivityLimit, store2.limit)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := New(&fakeStore{})
	var first, second int
	unsub := c.Subscribe(func(Change) { first++ })
	c.Subscribe(func(Change) { second++ })

	require.NoError(t, c.Refresh(context.Background(), TableTasks))
	unsub()
	unsub()
	require.NoError(t, c.Refresh(context.Background(), TableTasks))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestListenerMayReadCache(t *testing.T) {
	c := New(&fakeStore{tasks: []domain.Task{{ID: "t1"}}})
	var seen int
	c.Subscribe(func(Change) { seen = len(c.Tasks()) })
	require.NoError(t, c.Refresh(context.Background(), TableTasks))
	assert.Equal(t, 1, seen)
}

func TestUnknownTable(t *testing.T) {
	c := New(&fakeStore{})
	assert.Error(t, c.Refresh(context.Background(), Table("nope")))
}

func TestAnnounceNotifiesWithoutFetching(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	var got Change
	c.Subscribe(func(ch Change) { got = ch })
	c.Announce(TableChatMessages)
	assert.Equal(t, []Table{TableChatMessages}, got.Tables)
	assert.Empty(t, store.calls)
}
