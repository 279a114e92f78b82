package aggregate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vontta/internal/domain"
)

func task(project, user, status, hours string) domain.Task {
	return domain.Task{ProjectID: project, CollaboratorID: user, Status: status, HoursDedicated: hours}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"01:30", 90, true},
		{"00:00", 0, true},
		{"1:05", 65, true},
		{"02:75", 195, true},
		{"", 0, false},
		{"bad", 0, false},
		{"-1:00", 0, false},
		{"01:", 0, false},
		{"01:30:00", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseDuration(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestTotalHours(t *testing.T) {
	assert.Equal(t, "00:00", TotalHours(nil, "anyone"))
	assert.Equal(t, "00:00", TotalHours([]domain.Task{}, ""))

	tasks := []domain.Task{
		task("p", "u1", domain.StatusPending, "01:30"),
		task("p", "u2", domain.StatusPending, "00:45"),
		task("p", "u1", domain.StatusPending, "bad"),
		task("p", "u1", domain.StatusPending, ""),
	}
	assert.Equal(t, "02:15", TotalHours(tasks, ""))
	assert.Equal(t, "01:30", TotalHours(tasks, "u1"))
	assert.Equal(t, "00:00", TotalHours(tasks, "nobody"))
}

func TestTotalHoursBeyondOneHundred(t *testing.T) {
	tasks := []domain.Task{task("p", "u", "", "99:59"), task("p", "u", "", "00:02")}
	assert.Equal(t, "100:01", TotalHours(tasks, ""))
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, Completion{}, CompletionRate(nil))

	tasks := []domain.Task{
		task("p", "u", domain.StatusCompleted, ""),
		task("p", "u", domain.StatusCompleted, ""),
		task("p", "u", domain.StatusPending, ""),
	}
	assert.Equal(t, Completion{Percent: 67, Completed: 2, Pending: 1, Total: 3}, CompletionRate(tasks))

	blocked := append(tasks, task("p", "u", domain.StatusBlocked, ""))
	got := CompletionRate(blocked)
	assert.Equal(t, 50, got.Percent)
	assert.Equal(t, 2, got.Pending)
}

func TestHoursByProjectTopFive(t *testing.T) {
	var tasks []domain.Task
	var projects []domain.Project
	for i := 1; i <= 8; i++ {
		id := fmt.Sprintf("p%d", i)
		projects = append(projects, domain.Project{ID: id, Name: "Project " + id})
		tasks = append(tasks, task(id, "u", "", fmt.Sprintf("%02d:00", i)))
	}
	tasks = append(tasks, task("p2", "u", "", "garbage"))

	got := HoursByProject(tasks, projects)
	require.Len(t, got.Entries, TopProjects)
	for i := 1; i < len(got.Entries); i++ {
		assert.Greater(t, got.Entries[i-1].Minutes, got.Entries[i].Minutes)
	}
	assert.Equal(t, "p8", got.Entries[0].ProjectID)
	assert.Equal(t, 8*60, got.Max)
	assert.Equal(t, "08:00", got.Entries[0].Hours)
}

func TestHoursByProjectFallbacks(t *testing.T) {
	empty := HoursByProject(nil, nil)
	assert.Empty(t, empty.Entries)
	assert.Equal(t, 1, empty.Max)

	got := HoursByProject([]domain.Task{task("gone", "u", "", "02:00"), task("zero", "u", "", "00:00")}, nil)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, UnknownProject, got.Entries[0].Name)
}

func TestCollaboratorLoad(t *testing.T) {
	users := []domain.Profile{
		{ID: "idle", Name: "Bruno"},
		{ID: "busy", Name: "Carla"},
		{ID: "mid", Name: "Ana"},
		{ID: "edge", Name: "Davi"},
	}
	tasks := []domain.Task{
		task("p", "busy", "", "30:00"),
		task("p", "busy", "", "20:00"),
		task("p", "mid", "", "41:00"),
		task("p", "edge", "", "40:00"),
	}
	loads := CollaboratorLoad(tasks, users, LoadOptions{})
	require.Len(t, loads, 4)

	assert.Equal(t, "busy", loads[0].UserID)
	assert.Equal(t, 50*60, loads[0].Minutes)
	assert.Equal(t, 100.0, loads[0].Percent)
	assert.Equal(t, TierOver, loads[0].Tier)

	assert.Equal(t, "mid", loads[1].UserID)
	assert.Equal(t, TierElevated, loads[1].Tier)

	assert.Equal(t, "edge", loads[2].UserID)
	assert.Equal(t, TierNormal, loads[2].Tier)

	assert.Equal(t, "idle", loads[3].UserID)
	assert.Equal(t, 0, loads[3].Minutes)
	assert.Equal(t, 0.0, loads[3].Percent)
}

func TestCollaboratorLoadIsPure(t *testing.T) {
	users := []domain.Profile{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	tasks := []domain.Task{task("p", "a", "", "10:00"), task("p", "b", "", "12:30")}
	first := CollaboratorLoad(tasks, users, LoadOptions{CapacityMinutes: 600})
	second := CollaboratorLoad(tasks, users, LoadOptions{CapacityMinutes: 600})
	assert.Equal(t, first, second)
	assert.Equal(t, "a", users[0].ID, "input order untouched")
}

func TestLoadOptionsDefaults(t *testing.T) {
	o := LoadOptions{}.withDefaults()
	assert.Equal(t, DefaultCapacityMinutes, o.CapacityMinutes)
	assert.Equal(t, DefaultElevatedMinutes, o.ElevatedMinutes)

	small := LoadOptions{CapacityMinutes: 600}.withDefaults()
	assert.Equal(t, 600, small.ElevatedMinutes)
}
