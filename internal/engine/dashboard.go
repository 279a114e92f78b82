package engine

import (
	"context"

	"vontta/internal/aggregate"
	"vontta/internal/cache"
	"vontta/internal/domain"
	"vontta/internal/planner"
)

// Dashboard is the summary shown on the home screen. It is computed from the
// cache, so it reflects the live week only.
type Dashboard struct {
	TotalHours string                 `json:"total_hours"`
	Completion aggregate.Completion   `json:"completion"`
	Projects   aggregate.ProjectHours `json:"projects"`
	Loads      []aggregate.Load       `json:"loads"`
	Recent     []domain.ActivityLog   `json:"recent"`
}

func (e Engine) loadOptions() aggregate.LoadOptions {
	cfg := e.cfg()
	return aggregate.LoadOptions{CapacityMinutes: cfg.CapacityMinutes(), ElevatedMinutes: cfg.ElevatedMinutes()}
}

func (e Engine) Dashboard() Dashboard {
	tasks := e.Cache.Tasks()
	return Dashboard{
		TotalHours: aggregate.TotalHours(tasks, ""),
		Completion: aggregate.CompletionRate(tasks),
		Projects:   aggregate.HoursByProject(tasks, e.Cache.Projects()),
		Loads:      aggregate.CollaboratorLoad(tasks, e.Cache.Profiles(), e.loadOptions()),
		Recent:     e.Cache.Activity(),
	}
}

// TotalHours sums the live hours of one collaborator, or of everyone when
// collaboratorID is empty.
func (e Engine) TotalHours(collaboratorID string) string {
	return aggregate.TotalHours(e.Cache.Tasks(), collaboratorID)
}

// PlannerWeek lays out a collaborator's live tasks over the current Mon-Fri.
func (e Engine) PlannerWeek(collaboratorID string) []planner.Day {
	return planner.Week(e.Cache.Tasks(), collaboratorID, e.now(), e.cfg().Location())
}

// Subscribe forwards cache change notifications.
func (e Engine) Subscribe(fn cache.Listener) func() {
	return e.Cache.Subscribe(fn)
}

// SyncExternal reloads the whole cache when activity_logs has entries newer
// than the cached head, which means another process wrote to the workspace.
// It reports whether a reload happened.
func (e Engine) SyncExternal(ctx context.Context) (bool, error) {
	head, err := e.Repo.LatestActivityID(ctx)
	if err != nil {
		return false, err
	}
	var seen int64
	if logs := e.Cache.Activity(); len(logs) > 0 {
		seen = logs[0].ID
	}
	if head <= seen {
		return false, nil
	}
	if err := e.Cache.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}
