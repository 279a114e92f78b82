package repo_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"vontta/internal/db"
	"vontta/internal/domain"
	"vontta/internal/migrate"
	"vontta/internal/repo"
)

const ts = "2024-03-04T12:00:00Z"

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func seedReference(t *testing.T, r repo.Repo) {
	t.Helper()
	ctx := context.Background()
	if err := r.InsertSector(ctx, nil, domain.Sector{ID: "s1", Name: "Engenharia", CreatedAt: ts}); err != nil {
		t.Fatalf("sector: %v", err)
	}
	if err := r.InsertProject(ctx, nil, domain.Project{ID: "p1", Name: "Portal", SectorID: "s1", CreatedAt: ts}); err != nil {
		t.Fatalf("project: %v", err)
	}
	if err := r.InsertProfile(ctx, nil, domain.Profile{ID: "u1", Name: "Ana", Role: domain.RoleUser, CreatedAt: ts}); err != nil {
		t.Fatalf("profile: %v", err)
	}
}

func sampleTask(id string) domain.Task {
	return domain.Task{
		ID:              id,
		ProjectID:       "p1",
		CollaboratorID:  "u1",
		Sector:          "Engenharia",
		PlannedActivity: "Plan " + id,
		Priority:        domain.PriorityMedium,
		Status:          domain.StatusPending,
		DueDate:         "2024-03-05",
		HoursDedicated:  "01:00",
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

func TestDeleteByIDsOnlyTouchesListedRows(t *testing.T) {
	r := newRepo(t)
	seedReference(t, r)
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		if err := r.InsertTask(ctx, nil, sampleTask(id)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	n, err := r.DeleteByIDs(ctx, repo.TableTasks, []string{"t1", "t3", "missing"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", n)
	}
	left, err := r.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 1 || left[0].ID != "t2" {
		t.Fatalf("unexpected survivors: %+v", left)
	}
	if _, err := r.DeleteByIDs(ctx, "profiles", []string{"u1"}); err == nil {
		t.Fatalf("expected unsupported table error")
	}
}

func TestHistoryTitleUpdateKeepsSnapshots(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	h := domain.WeeklyHistory{
		ID:             "h1",
		StartDate:      ts,
		EndDate:        ts,
		TotalHours:     "03:00",
		TasksCompleted: 1,
		TasksPending:   1,
		Tasks:          []domain.Task{sampleTask("a"), sampleTask("b")},
		BoardTasks: []domain.BoardTask{{
			ID: "c", Title: "Card", Status: domain.BoardDoing,
			MemberIDs: []string{"u1"}, Subtasks: []domain.Subtask{{ID: "s", Title: "sub"}},
			CreatedAt: ts, UpdatedAt: ts,
		}},
		CreatedAt: ts,
	}
	if err := r.InsertHistory(ctx, h); err != nil {
		t.Fatalf("insert history: %v", err)
	}
	before, err := r.GetHistory(ctx, "h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if before.Title != nil {
		t.Fatalf("expected no title, got %q", *before.Title)
	}
	if err := r.UpdateHistoryTitle(ctx, "h1", "Semana do lançamento"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	after, err := r.GetHistory(ctx, "h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Title == nil || *after.Title != "Semana do lançamento" {
		t.Fatalf("title not updated: %+v", after.Title)
	}
	if !reflect.DeepEqual(before.Tasks, after.Tasks) || !reflect.DeepEqual(before.BoardTasks, after.BoardTasks) {
		t.Fatalf("snapshots changed by rename")
	}
	if err := r.UpdateHistoryTitle(ctx, "nope", "x"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReferencedRowsCannotBeDeleted(t *testing.T) {
	r := newRepo(t)
	seedReference(t, r)
	ctx := context.Background()
	if err := r.InsertTask(ctx, nil, sampleTask("t1")); err != nil {
		t.Fatalf("insert task: %v", err)
	}
	if err := r.DeleteSector(ctx, nil, "s1"); !errors.Is(err, repo.ErrInUse) {
		t.Fatalf("sector delete: expected ErrInUse, got %v", err)
	}
	if err := r.DeleteProject(ctx, nil, "p1"); !errors.Is(err, repo.ErrInUse) {
		t.Fatalf("project delete: expected ErrInUse, got %v", err)
	}
	if err := r.DeleteProfile(ctx, nil, "u1"); !errors.Is(err, repo.ErrInUse) {
		t.Fatalf("profile delete: expected ErrInUse, got %v", err)
	}
	name, err := r.ProjectSectorName(ctx, nil, "p1")
	if err != nil || name != "Engenharia" {
		t.Fatalf("sector name: %q %v", name, err)
	}
}

func TestBoardTaskListsRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	b := domain.BoardTask{ID: "b1", Title: "Card", Status: domain.BoardTodo, CreatedAt: ts, UpdatedAt: ts}
	if err := r.InsertBoardTask(ctx, nil, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := r.GetBoardTask(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MemberIDs == nil || got.Subtasks == nil {
		t.Fatalf("expected empty, non-nil lists: %+v", got)
	}
	got.Subtasks = append(got.Subtasks, domain.Subtask{ID: "s1", Title: "sub"})
	got.Status = domain.BoardDone
	if err := r.UpdateBoardTask(ctx, nil, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	done, err := r.ListBoardTasks(ctx, domain.BoardDone)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(done) != 1 || len(done[0].Subtasks) != 1 {
		t.Fatalf("unexpected board list: %+v", done)
	}
}

func TestChannelLock(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if err := r.InsertChannel(ctx, domain.ChatChannel{ID: "c1", Name: "Geral", CreatedAt: ts}); err != nil {
		t.Fatalf("insert channel: %v", err)
	}
	ok, err := r.LockChannel(ctx, "c1", "u1")
	if err != nil || !ok {
		t.Fatalf("first lock: %v %v", ok, err)
	}
	ok, err = r.LockChannel(ctx, "c1", "u2")
	if err != nil || ok {
		t.Fatalf("second lock should fail quietly: %v %v", ok, err)
	}
	if _, err := r.LockChannel(ctx, "missing", "u1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := r.UnlockChannel(ctx, "c1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	c, err := r.GetChannel(ctx, "c1")
	if err != nil || c.IsLocked || c.LockedBy != "" {
		t.Fatalf("channel still locked: %+v %v", c, err)
	}
}
