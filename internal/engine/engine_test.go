package engine_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"vontta/internal/archive"
	"vontta/internal/config"
	"vontta/internal/db"
	"vontta/internal/domain"
	"vontta/internal/engine"
	"vontta/internal/engine/auth"
	"vontta/internal/logging"
	"vontta/internal/migrate"
	"vontta/internal/repo"
	"vontta/internal/report"
)

type testEnv struct {
	Engine  engine.Engine
	Ctx     context.Context
	Sector  domain.Sector
	Project domain.Project
}

const (
	adminID = "admin"
	anaID   = "ana"
	biaID   = "bia"
)

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logger := logging.Discard()
	eng := engine.New(conn, config.NewLive(dir, config.Default(), logger), logger)
	// Friday 13 March 2026, 12:00 in São Paulo.
	eng.Now = func() time.Time { return time.Date(2026, 3, 13, 15, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if err := eng.Load(ctx); err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if _, err := eng.CreateProfile(ctx, "", engine.ProfileInput{ID: adminID, Name: "Admin"}); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	for _, p := range []engine.ProfileInput{{ID: anaID, Name: "Ana"}, {ID: biaID, Name: "Bia"}} {
		if _, err := eng.CreateProfile(ctx, adminID, p); err != nil {
			t.Fatalf("seed profile %s: %v", p.ID, err)
		}
	}
	sector, err := eng.CreateSector(ctx, adminID, "TI")
	if err != nil {
		t.Fatalf("seed sector: %v", err)
	}
	project, err := eng.CreateProject(ctx, adminID, engine.ProjectInput{Name: "Portal", SectorID: sector.ID})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Sector: sector, Project: project}
}

func (env testEnv) task(t *testing.T, actor string, in engine.TaskInput) domain.Task {
	t.Helper()
	if in.ProjectID == "" {
		in.ProjectID = env.Project.ID
	}
	task, err := env.Engine.CreateTask(env.Ctx, actor, in)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func ptr[T any](v T) *T { return &v }

func TestBootstrapProfileIsAdmin(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.GetProfile(env.Ctx, adminID)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAdmin() {
		t.Fatalf("first profile should be admin, got %s", p.Role)
	}
	ana, _ := env.Engine.GetProfile(env.Ctx, anaID)
	if ana.IsAdmin() {
		t.Fatalf("later profiles default to user")
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.CreateProfile(env.Ctx, anaID, engine.ProfileInput{Name: "Caio"}); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, anaID, engine.TaskInput{PlannedActivity: "  Revisar layout  "})
	if task.CollaboratorID != anaID || task.Priority != domain.PriorityMedium || task.Status != domain.StatusPending {
		t.Fatalf("unexpected defaults: %+v", task)
	}
	if task.DueDate != "2026-03-13" || task.HoursDedicated != domain.ZeroHours {
		t.Fatalf("unexpected date/hours: %s %s", task.DueDate, task.HoursDedicated)
	}
	if task.PlannedActivity != "Revisar layout" || task.Sector != "TI" {
		t.Fatalf("unexpected activity/sector: %q %q", task.PlannedActivity, task.Sector)
	}
	if len(env.Engine.Cache.Tasks()) != 1 {
		t.Fatalf("cache not refreshed after create")
	}

	if _, err := env.Engine.CreateTask(env.Ctx, anaID, engine.TaskInput{ProjectID: "ghost", PlannedActivity: "x"}); !isValidation(err, "project_id") {
		t.Fatalf("expected project validation error, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, anaID, engine.TaskInput{ProjectID: env.Project.ID, PlannedActivity: "x", HoursDedicated: "1h"}); !isValidation(err, "hours_dedicated") {
		t.Fatalf("expected hours validation error, got %v", err)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.CreateTask(env.Ctx, anaID, engine.TaskInput{ProjectID: env.Project.ID, PlannedActivity: "x", CollaboratorID: biaID}); !errors.As(err, &fe) {
		t.Fatalf("user logging for someone else should be forbidden, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, "ghost", engine.TaskInput{ProjectID: env.Project.ID, PlannedActivity: "x"}); !errors.Is(err, auth.ErrUnknownActor) {
		t.Fatalf("expected unknown actor, got %v", err)
	}
}

func isValidation(err error, field string) bool {
	var ve domain.ValidationError
	return errors.As(err, &ve) && ve.Field == field
}

func TestSectorSnapshot(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, anaID, engine.TaskInput{PlannedActivity: "Deploy"})

	if _, err := env.Engine.RenameSector(env.Ctx, adminID, env.Sector.ID, "Tecnologia"); err != nil {
		t.Fatalf("rename sector: %v", err)
	}
	got, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sector != "TI" {
		t.Fatalf("sector rename must not touch tasks, got %q", got.Sector)
	}

	// Touching other fields keeps the snapshot.
	got, err = env.Engine.UpdateTask(env.Ctx, anaID, task.ID, domain.TaskPatch{Notes: ptr("ok")})
	if err != nil || got.Sector != "TI" {
		t.Fatalf("update kept sector? %q %v", got.Sector, err)
	}

	rh, err := env.Engine.CreateSector(env.Ctx, adminID, "RH")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.Engine.CreateProject(env.Ctx, adminID, engine.ProjectInput{Name: "Onboarding", SectorID: rh.ID})
	if err != nil {
		t.Fatal(err)
	}
	got, err = env.Engine.UpdateTask(env.Ctx, anaID, task.ID, domain.TaskPatch{ProjectID: ptr(other.ID)})
	if err != nil {
		t.Fatalf("reassign project: %v", err)
	}
	if got.Sector != "RH" {
		t.Fatalf("sector should follow the new project, got %q", got.Sector)
	}
	got, err = env.Engine.UpdateTask(env.Ctx, anaID, task.ID, domain.TaskPatch{ProjectID: ptr(env.Project.ID)})
	if err != nil || got.Sector != "Tecnologia" {
		t.Fatalf("sector should be re-derived from the current name, got %q %v", got.Sector, err)
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, anaID, engine.TaskInput{PlannedActivity: "API", Notes: "rascunho", HoursDedicated: "01:00"})

	got, err := env.Engine.UpdateTask(env.Ctx, anaID, task.ID, domain.TaskPatch{Notes: ptr(""), HoursDedicated: ptr("02:15")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Notes != "" || got.HoursDedicated != "02:15" || got.PlannedActivity != "API" {
		t.Fatalf("unexpected patch result: %+v", got)
	}

	before, _ := env.Engine.Activity(env.Ctx, 100)
	same, err := env.Engine.UpdateTask(env.Ctx, anaID, task.ID, domain.TaskPatch{})
	if err != nil || same.ID != task.ID {
		t.Fatalf("empty patch: %v", err)
	}
	after, _ := env.Engine.Activity(env.Ctx, 100)
	if len(after) != len(before) {
		t.Fatalf("empty patch wrote an audit entry")
	}

	if _, err := env.Engine.UpdateTask(env.Ctx, anaID, task.ID, domain.TaskPatch{Status: ptr("Feito")}); !isValidation(err, "status") {
		t.Fatalf("expected status validation, got %v", err)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.UpdateTask(env.Ctx, biaID, task.ID, domain.TaskPatch{Notes: ptr("x")}); !errors.As(err, &fe) {
		t.Fatalf("other user edit should be forbidden, got %v", err)
	}
	if _, err := env.Engine.UpdateTask(env.Ctx, anaID, task.ID, domain.TaskPatch{CollaboratorID: ptr(biaID)}); !errors.As(err, &fe) {
		t.Fatalf("user reassigning should be forbidden, got %v", err)
	}
	got, err = env.Engine.UpdateTask(env.Ctx, adminID, task.ID, domain.TaskPatch{CollaboratorID: ptr(biaID)})
	if err != nil || got.CollaboratorID != biaID {
		t.Fatalf("admin reassign: %v", err)
	}
	if _, err := env.Engine.UpdateTask(env.Ctx, adminID, "missing", domain.TaskPatch{Notes: ptr("x")}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDuplicateToggleMove(t *testing.T) {
	env := newTestEnv(t)
	src := env.task(t, anaID, engine.TaskInput{PlannedActivity: "Relatório", Priority: domain.PriorityHigh, Status: domain.StatusInProgress, HoursDedicated: "03:00", DueDate: "2026-03-11"})

	dup, err := env.Engine.DuplicateTask(env.Ctx, biaID, src.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == src.ID || dup.PlannedActivity != "Relatório (Cópia)" || dup.CollaboratorID != biaID {
		t.Fatalf("unexpected duplicate: %+v", dup)
	}
	if dup.Status != domain.StatusPending || dup.HoursDedicated != domain.ZeroHours || dup.Priority != domain.PriorityHigh || dup.Sector != src.Sector {
		t.Fatalf("unexpected duplicate fields: %+v", dup)
	}

	done, err := env.Engine.ToggleCompletion(env.Ctx, anaID, src.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Completed() || done.DeliveredActivity != "Relatório" {
		t.Fatalf("toggle to completed: %+v", done)
	}
	if _, err := env.Engine.MoveTaskDate(env.Ctx, anaID, src.ID, "2026-03-12"); !isValidation(err, "status") {
		t.Fatalf("completed tasks cannot move, got %v", err)
	}
	reopened, err := env.Engine.ToggleCompletion(env.Ctx, anaID, src.ID)
	if err != nil || reopened.Status != domain.StatusPending || reopened.DeliveredActivity != "Relatório" {
		t.Fatalf("toggle back: %+v %v", reopened, err)
	}

	moved, err := env.Engine.MoveTaskDate(env.Ctx, anaID, src.ID, "2026-03-12")
	if err != nil || moved.DueDate != "2026-03-12" {
		t.Fatalf("move: %+v %v", moved, err)
	}
	if _, err := env.Engine.MoveTaskDate(env.Ctx, anaID, src.ID, "12/03/2026"); !isValidation(err, "due_date") {
		t.Fatalf("expected date validation, got %v", err)
	}
	again, err := env.Engine.MoveTaskDate(env.Ctx, anaID, src.ID, "2026-03-12")
	if err != nil || again.UpdatedAt != moved.UpdatedAt {
		t.Fatalf("same date should be a no-op: %v", err)
	}
}

func TestQuickAdd(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.QuickAdd(env.Ctx, biaID, engine.QuickAddInput{ProjectID: env.Project.ID, Activity: "Daily", Date: "2026-03-10"})
	if err != nil {
		t.Fatal(err)
	}
	if task.CollaboratorID != biaID || task.DueDate != "2026-03-10" || task.Priority != domain.PriorityMedium || task.Status != domain.StatusPending {
		t.Fatalf("unexpected quick add: %+v", task)
	}
	if _, err := env.Engine.QuickAdd(env.Ctx, biaID, engine.QuickAddInput{ProjectID: env.Project.ID, Activity: "  "}); !isValidation(err, "activity") {
		t.Fatalf("expected activity validation, got %v", err)
	}

	week := env.Engine.PlannerWeek(biaID)
	if len(week) != 5 || week[1].Date != "2026-03-10" || len(week[1].Tasks) != 1 {
		t.Fatalf("planner week: %+v", week)
	}
}

func TestBoardMoves(t *testing.T) {
	env := newTestEnv(t)
	card, err := env.Engine.CreateBoardTask(env.Ctx, anaID, engine.BoardTaskInput{
		Title:     "Migração",
		MemberIDs: []string{anaID, biaID},
		Subtasks:  []domain.Subtask{{Title: "Backup"}, {Title: "Cutover"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if card.Status != domain.BoardTodo || card.Subtasks[0].ID == "" {
		t.Fatalf("unexpected card: %+v", card)
	}

	for _, status := range []string{domain.BoardDoing, domain.BoardDone, domain.BoardTodo, domain.BoardCanceled, domain.BoardDoing} {
		moved, err := env.Engine.MoveBoardTask(env.Ctx, biaID, card.ID, status)
		if err != nil || moved.Status != status {
			t.Fatalf("move to %s: %v", status, err)
		}
	}
	if _, err := env.Engine.MoveBoardTask(env.Ctx, biaID, card.ID, "ARCHIVED"); !isValidation(err, "status") {
		t.Fatalf("expected status validation, got %v", err)
	}
	before, _ := env.Engine.Activity(env.Ctx, 100)
	if _, err := env.Engine.MoveBoardTask(env.Ctx, biaID, card.ID, domain.BoardDoing); err != nil {
		t.Fatal(err)
	}
	after, _ := env.Engine.Activity(env.Ctx, 100)
	if len(after) != len(before) {
		t.Fatalf("same column move wrote an audit entry")
	}

	toggled, err := env.Engine.ToggleSubtask(env.Ctx, anaID, card.ID, card.Subtasks[1].ID)
	if err != nil || !toggled.Subtasks[1].Completed || toggled.Subtasks[0].Completed {
		t.Fatalf("toggle subtask: %+v %v", toggled.Subtasks, err)
	}
	if _, err := env.Engine.ToggleSubtask(env.Ctx, anaID, card.ID, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	updated, err := env.Engine.UpdateBoardTask(env.Ctx, anaID, card.ID, domain.BoardTaskPatch{Title: ptr("Migração v2"), Status: ptr(domain.BoardDone)})
	if err != nil || updated.Title != "Migração v2" || updated.Status != domain.BoardDone || len(updated.MemberIDs) != 2 {
		t.Fatalf("update card: %+v %v", updated, err)
	}
	if cached := env.Engine.Cache.BoardTasks(); len(cached) != 1 || cached[0].Status != domain.BoardDone {
		t.Fatalf("cache not refreshed: %+v", cached)
	}
	if err := env.Engine.DeleteBoardTask(env.Ctx, anaID, card.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := env.Engine.ListBoard(env.Ctx, ""); len(list) != 0 {
		t.Fatalf("card not deleted")
	}
}

func TestReferenceInUse(t *testing.T) {
	env := newTestEnv(t)
	env.task(t, anaID, engine.TaskInput{PlannedActivity: "x"})
	if err := env.Engine.DeleteProject(env.Ctx, adminID, env.Project.ID); !errors.Is(err, repo.ErrInUse) {
		t.Fatalf("expected in use for project, got %v", err)
	}
	if err := env.Engine.DeleteSector(env.Ctx, adminID, env.Sector.ID); !errors.Is(err, repo.ErrInUse) {
		t.Fatalf("expected in use for sector, got %v", err)
	}
	if err := env.Engine.DeleteProfile(env.Ctx, adminID, anaID); !errors.Is(err, repo.ErrInUse) {
		t.Fatalf("expected in use for profile, got %v", err)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.CreateSector(env.Ctx, anaID, "Vendas"); !errors.As(err, &fe) {
		t.Fatalf("non-admin sector create should be forbidden, got %v", err)
	}
	if err := env.Engine.DeleteProfile(env.Ctx, adminID, biaID); err != nil {
		t.Fatalf("delete idle profile: %v", err)
	}
}

func TestProfileSelfEdit(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.UpdateProfile(env.Ctx, anaID, anaID, domain.ProfilePatch{Name: ptr("Ana Paula")})
	if err != nil || p.Name != "Ana Paula" {
		t.Fatalf("self edit: %v", err)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.UpdateProfile(env.Ctx, anaID, anaID, domain.ProfilePatch{Role: ptr(domain.RoleAdmin)}); !errors.As(err, &fe) {
		t.Fatalf("self promotion should be forbidden, got %v", err)
	}
	if name, ok := env.Engine.Cache.UserName(anaID); !ok || name != "Ana Paula" {
		t.Fatalf("cache user name = %q", name)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.task(t, anaID, engine.TaskInput{PlannedActivity: "a", HoursDedicated: "41:00"})
	env.task(t, anaID, engine.TaskInput{PlannedActivity: "b", HoursDedicated: "00:30", Status: domain.StatusCompleted})
	env.task(t, biaID, engine.TaskInput{PlannedActivity: "c", HoursDedicated: "02:00"})

	d := env.Engine.Dashboard()
	if d.TotalHours != "43:30" {
		t.Fatalf("total hours = %s", d.TotalHours)
	}
	if d.Completion.Completed != 1 || d.Completion.Total != 3 || d.Completion.Percent != 33 {
		t.Fatalf("completion = %+v", d.Completion)
	}
	if len(d.Projects.Entries) != 1 || d.Projects.Entries[0].Name != "Portal" || d.Projects.Max != 2610 {
		t.Fatalf("projects = %+v", d.Projects)
	}
	if len(d.Loads) != 3 || d.Loads[0].UserID != anaID || d.Loads[0].Tier != "elevated" {
		t.Fatalf("loads = %+v", d.Loads)
	}
	if env.Engine.TotalHours(biaID) != "02:00" {
		t.Fatalf("bia hours = %s", env.Engine.TotalHours(biaID))
	}
	if len(d.Recent) == 0 {
		t.Fatalf("expected recent activity")
	}
}

func TestCloseWeek(t *testing.T) {
	env := newTestEnv(t)
	env.task(t, anaID, engine.TaskInput{PlannedActivity: "a", HoursDedicated: "02:30"})
	env.task(t, biaID, engine.TaskInput{PlannedActivity: "b", HoursDedicated: "01:00", Status: domain.StatusCompleted})
	if _, err := env.Engine.CreateBoardTask(env.Ctx, anaID, engine.BoardTaskInput{Title: "card"}); err != nil {
		t.Fatal(err)
	}

	var fe auth.ForbiddenError
	if _, err := env.Engine.CloseWeek(env.Ctx, anaID); !errors.As(err, &fe) {
		t.Fatalf("non-admin close should be forbidden, got %v", err)
	}

	res, err := env.Engine.CloseWeek(env.Ctx, adminID)
	if err != nil {
		t.Fatalf("close week: %v", err)
	}
	if !res.FullyClosed() || res.TotalHours != "03:30" || res.TasksCompleted != 1 || res.TasksPending != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	tasks, _ := env.Engine.ListTasks(env.Ctx, repo.TaskFilters{})
	board, _ := env.Engine.ListBoard(env.Ctx, "")
	if len(tasks) != 0 || len(board) != 0 {
		t.Fatalf("live data not cleared: %d tasks %d cards", len(tasks), len(board))
	}
	if len(env.Engine.Cache.Tasks()) != 0 || len(env.Engine.Cache.History()) != 1 {
		t.Fatalf("cache not refreshed after close")
	}
	h, err := env.Engine.GetHistory(env.Ctx, res.HistoryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Tasks) != 2 || len(h.BoardTasks) != 1 || h.Title != nil {
		t.Fatalf("unexpected history: %+v", h)
	}
	if h.StartDate != h.EndDate || h.CreatedAt != "2026-03-13T15:00:00Z" {
		t.Fatalf("unexpected period: %s %s %s", h.StartDate, h.EndDate, h.CreatedAt)
	}
	logs, _ := env.Engine.Activity(env.Ctx, 1)
	if len(logs) != 1 || logs[0].Description != archive.ClosureDescription || logs[0].Action != domain.ActionDelete {
		t.Fatalf("unexpected last activity: %+v", logs)
	}
	if logs[0].TS != "2026-03-13T15:00:00Z" {
		t.Fatalf("activity ts should follow the engine clock, got %s", logs[0].TS)
	}

	// An empty week still archives.
	res, err = env.Engine.CloseWeek(env.Ctx, adminID)
	if err != nil || !res.Archived || res.TotalHours != "00:00" {
		t.Fatalf("empty close: %+v %v", res, err)
	}
}

func TestCloseWeekSeesOtherProcessWrites(t *testing.T) {
	env := newTestEnv(t)
	env.task(t, anaID, engine.TaskInput{PlannedActivity: "a", HoursDedicated: "01:00"})

	logger := logging.Discard()
	other := engine.New(env.Engine.DB, config.NewLive("", config.Default(), logger), logger)
	if err := other.Load(env.Ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := other.CreateTask(env.Ctx, biaID, engine.TaskInput{ProjectID: env.Project.ID, PlannedActivity: "b", HoursDedicated: "05:00"}); err != nil {
		t.Fatal(err)
	}
	if n := len(env.Engine.Cache.Tasks()); n != 1 {
		t.Fatalf("expected a stale cache before sync, got %d tasks", n)
	}

	synced, err := env.Engine.SyncExternal(env.Ctx)
	if err != nil || !synced {
		t.Fatalf("sync: %v %v", synced, err)
	}
	if n := len(env.Engine.Cache.Tasks()); n != 2 {
		t.Fatalf("cache should hold both tasks after sync, got %d", n)
	}
	if synced, _ := env.Engine.SyncExternal(env.Ctx); synced {
		t.Fatalf("second sync should be a no-op")
	}

	if _, err := other.CreateTask(env.Ctx, biaID, engine.TaskInput{ProjectID: env.Project.ID, PlannedActivity: "c", HoursDedicated: "02:00"}); err != nil {
		t.Fatal(err)
	}
	res, err := env.Engine.CloseWeek(env.Ctx, adminID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.FullyClosed() || res.TotalHours != "08:00" {
		t.Fatalf("close should archive every live task: %+v", res)
	}
	tasks, _ := other.ListTasks(env.Ctx, repo.TaskFilters{})
	if len(tasks) != 0 {
		t.Fatalf("live tasks after close: %d", len(tasks))
	}
}

func TestRenameAndExportHistory(t *testing.T) {
	env := newTestEnv(t)
	env.task(t, anaID, engine.TaskInput{PlannedActivity: "Entrega", HoursDedicated: "01:00"})
	res, err := env.Engine.CloseWeek(env.Ctx, adminID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.Engine.RenameHistory(env.Ctx, anaID, res.HistoryID, "Sprint 1"); err == nil {
		t.Fatalf("non-admin rename should fail")
	}
	h, err := env.Engine.RenameHistory(env.Ctx, adminID, res.HistoryID, "  Sprint 1 ")
	if err != nil || h.Title == nil || *h.Title != "Sprint 1" || len(h.Tasks) != 1 {
		t.Fatalf("rename: %+v %v", h, err)
	}
	if _, err := env.Engine.RenameHistory(env.Ctx, adminID, "missing", "x"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	rep, err := env.Engine.Report(env.Ctx, res.HistoryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Tasks) != 1 || rep.Tasks[0].Project != "Portal" || rep.Tasks[0].Collaborator != "Ana" {
		t.Fatalf("report rows: %+v", rep.Tasks)
	}

	var buf bytes.Buffer
	if err := env.Engine.ExportHistory(env.Ctx, res.HistoryID, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	subtitle, _ := f.GetCellValue(report.TasksSheet, "A2")
	if subtitle != "Semana de: 13/03/2026" {
		t.Fatalf("subtitle = %q", subtitle)
	}
	project, _ := f.GetCellValue(report.TasksSheet, "A5")
	if project != "Portal" {
		t.Fatalf("first data cell = %q", project)
	}
}

func TestAPIKeys(t *testing.T) {
	env := newTestEnv(t)
	key, raw, err := env.Engine.CreateAPIKey(env.Ctx, anaID, "ci")
	if err != nil {
		t.Fatal(err)
	}
	if raw == "" || key.KeyHash == raw {
		t.Fatalf("raw key must be returned and only its hash stored")
	}
	owner, err := env.Engine.ResolveAPIKey(env.Ctx, raw)
	if err != nil || owner != anaID {
		t.Fatalf("resolve: %s %v", owner, err)
	}
	if _, err := env.Engine.ResolveAPIKey(env.Ctx, "vt_wrong"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	keys, _ := env.Engine.ListAPIKeys(env.Ctx, biaID)
	if len(keys) != 0 {
		t.Fatalf("bia should not see ana's keys")
	}
	keys, _ = env.Engine.ListAPIKeys(env.Ctx, adminID)
	if len(keys) != 1 {
		t.Fatalf("admin should see every key")
	}
}
