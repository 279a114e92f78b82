package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vontta/internal/domain"
)

func TestDeriveReportResolvesNamesWithFallback(t *testing.T) {
	h := domain.WeeklyHistory{
		ID:        "h1",
		CreatedAt: "2024-10-11T21:00:00Z",
		Tasks: []domain.Task{
			{ProjectID: "p1", CollaboratorID: "u1", Sector: "TI", PlannedActivity: "Deploy", Status: domain.StatusCompleted, Priority: domain.PriorityHigh, DueDate: "2024-10-10", HoursDedicated: "02:00"},
			{ProjectID: "gone", CollaboratorID: "u-gone", PlannedActivity: "Old"},
		},
		BoardTasks: []domain.BoardTask{
			{Title: "Card", Status: "DOING", MemberIDs: []string{"u1", "u-gone"}, Description: "d"},
		},
	}
	projects := map[string]string{"p1": "Portal"}
	users := map[string]string{"u1": "Ana"}

	rep := DeriveReport(h,
		func(id string) string { return projects[id] },
		func(id string) string { return users[id] })

	require.Len(t, rep.Tasks, 2)
	assert.Equal(t, []string{"Portal", "TI", "Ana", "Deploy", "", domain.StatusCompleted, domain.PriorityHigh, "2024-10-10", "02:00", ""}, rep.Tasks[0].Values())
	assert.Equal(t, "gone", rep.Tasks[1].Project)
	assert.Equal(t, "u-gone", rep.Tasks[1].Collaborator)

	require.Len(t, rep.Board, 1)
	assert.Equal(t, "Ana, u-gone", rep.Board[0].Members)
	assert.Len(t, rep.Board[0].Values(), len(BoardColumns))
	assert.Len(t, rep.Tasks[0].Values(), len(TaskColumns))
}

func TestDeriveReportNilResolvers(t *testing.T) {
	h := domain.WeeklyHistory{Tasks: []domain.Task{{ProjectID: "p9", CollaboratorID: "u9"}}}
	rep := DeriveReport(h, nil, nil)
	assert.Equal(t, "p9", rep.Tasks[0].Project)
	assert.Equal(t, "u9", rep.Tasks[0].Collaborator)
	assert.NotNil(t, rep.Board)
}
