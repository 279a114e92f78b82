package archive

import (
	"strings"

	"vontta/internal/cache"
	"vontta/internal/domain"
)

// Column headers of the two report sheets.
var (
	TaskColumns  = []string{"Projeto", "Setor", "Colaborador", "Atividade Planejada", "Atividade Entregue", "Status", "Prioridade", "Prazo", "Horas", "Observações"}
	BoardColumns = []string{"Título", "Status", "Início", "Fim", "Membros", "Descrição"}
)

// Resolver maps an id to a display name. It must not fail; unknown ids get a
// fallback.
type Resolver func(id string) string

type TaskRow struct {
	Project      string `json:"project"`
	Sector       string `json:"sector"`
	Collaborator string `json:"collaborator"`
	Planned      string `json:"planned_activity"`
	Delivered    string `json:"delivered_activity"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	DueDate      string `json:"due_date"`
	Hours        string `json:"hours_dedicated"`
	Notes        string `json:"notes"`
}

// Values returns the row in TaskColumns order.
func (r TaskRow) Values() []string {
	return []string{r.Project, r.Sector, r.Collaborator, r.Planned, r.Delivered, r.Status, r.Priority, r.DueDate, r.Hours, r.Notes}
}

type BoardRow struct {
	Title       string `json:"title"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Members     string `json:"members"`
	Description string `json:"description"`
}

// Values returns the row in BoardColumns order.
func (r BoardRow) Values() []string {
	return []string{r.Title, r.Status, r.StartDate, r.EndDate, r.Members, r.Description}
}

type Report struct {
	HistoryID string     `json:"history_id"`
	CreatedAt string     `json:"created_at"`
	Tasks     []TaskRow  `json:"tasks"`
	Board     []BoardRow `json:"board"`
}

// DeriveReport turns one history record into task and board rows. Nil
// resolvers, and resolvers returning "", fall back to the raw id.
func DeriveReport(h domain.WeeklyHistory, projectName, userName Resolver) Report {
	project := orID(projectName)
	user := orID(userName)

	rep := Report{
		HistoryID: h.ID,
		CreatedAt: h.CreatedAt,
		Tasks:     make([]TaskRow, 0, len(h.Tasks)),
		Board:     make([]BoardRow, 0, len(h.BoardTasks)),
	}
	for _, t := range h.Tasks {
		rep.Tasks = append(rep.Tasks, TaskRow{
			Project:      project(t.ProjectID),
			Sector:       t.Sector,
			Collaborator: user(t.CollaboratorID),
			Planned:      t.PlannedActivity,
			Delivered:    t.DeliveredActivity,
			Status:       t.Status,
			Priority:     t.Priority,
			DueDate:      t.DueDate,
			Hours:        t.HoursDedicated,
			Notes:        t.Notes,
		})
	}
	for _, b := range h.BoardTasks {
		names := make([]string, 0, len(b.MemberIDs))
		for _, id := range b.MemberIDs {
			names = append(names, user(id))
		}
		rep.Board = append(rep.Board, BoardRow{
			Title:       b.Title,
			Status:      b.Status,
			StartDate:   b.StartDate,
			EndDate:     b.EndDate,
			Members:     strings.Join(names, ", "),
			Description: b.Description,
		})
	}
	return rep
}

func orID(r Resolver) Resolver {
	return func(id string) string {
		if r == nil {
			return id
		}
		if name := r(id); name != "" {
			return name
		}
		return id
	}
}

// ProjectNames resolves project ids through the cache.
func ProjectNames(c *cache.Cache) Resolver {
	return func(id string) string {
		name, _ := c.ProjectName(id)
		return name
	}
}

// UserNames resolves profile ids through the cache.
func UserNames(c *cache.Cache) Resolver {
	return func(id string) string {
		name, _ := c.UserName(id)
		return name
	}
}
