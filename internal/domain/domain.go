package domain

import (
	"fmt"
	"strings"
	"time"
)

// Task status values, stored verbatim.
const (
	StatusPending    = "Pendente"
	StatusInProgress = "Em Andamento"
	StatusCompleted  = "Concluído"
	StatusBlocked    = "Bloqueado"
)

// Task priority values, stored verbatim.
const (
	PriorityLow      = "Baixa"
	PriorityMedium   = "Média"
	PriorityHigh     = "Alta"
	PriorityCritical = "Crítica"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// DateLayout is the calendar date format used by due and board dates.
const DateLayout = "2006-01-02"

// ZeroHours is the empty HH:mm duration.
const ZeroHours = "00:00"

var (
	TaskStatuses   = []string{StatusPending, StatusInProgress, StatusCompleted, StatusBlocked}
	TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
)

type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role" enum:"admin,user"`
	Sector    string `json:"sector,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

type Sector struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SectorID  string `json:"sector_id,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Task is one logged unit of planned/delivered work.
//
// Sector is a snapshot of the project's sector name taken when the project is
// assigned. Renaming the sector later does not touch existing tasks.
type Task struct {
	ID                string `json:"id"`
	ProjectID         string `json:"project_id"`
	CollaboratorID    string `json:"collaborator_id"`
	Sector            string `json:"sector"`
	PlannedActivity   string `json:"planned_activity"`
	DeliveredActivity string `json:"delivered_activity"`
	Priority          string `json:"priority" enum:"Baixa,Média,Alta,Crítica"`
	Status            string `json:"status" enum:"Pendente,Em Andamento,Concluído,Bloqueado"`
	DueDate           string `json:"due_date" format:"date"`
	HoursDedicated    string `json:"hours_dedicated"`
	Notes             string `json:"notes"`
	CreatedAt         string `json:"created_at" format:"date-time"`
	UpdatedAt         string `json:"updated_at" format:"date-time"`
}

// Completed reports whether the task carries the completed status.
func (t Task) Completed() bool { return t.Status == StatusCompleted }

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type BoardTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	MemberIDs   []string  `json:"member_ids"`
	Status      string    `json:"status" enum:"TODO,DOING,DONE,CANCELED"`
	Subtasks    []Subtask `json:"subtasks"`
	CreatedAt   string    `json:"created_at" format:"date-time"`
	UpdatedAt   string    `json:"updated_at" format:"date-time"`
}

// Clone returns a copy that shares no slices with b.
func (b BoardTask) Clone() BoardTask {
	out := b
	out.MemberIDs = append([]string{}, b.MemberIDs...)
	out.Subtasks = append([]Subtask{}, b.Subtasks...)
	return out
}

// WeeklyHistory is the frozen record written when a week is closed. Only Title
// changes after creation.
type WeeklyHistory struct {
	ID             string      `json:"id"`
	Title          *string     `json:"title,omitempty"`
	StartDate      string      `json:"start_date" format:"date-time"`
	EndDate        string      `json:"end_date" format:"date-time"`
	TotalHours     string      `json:"total_hours"`
	TasksCompleted int         `json:"tasks_completed"`
	TasksPending   int         `json:"tasks_pending"`
	Tasks          []Task      `json:"tasks"`
	BoardTasks     []BoardTask `json:"board_tasks"`
	CreatedAt      string      `json:"created_at" format:"date-time"`
}

// DisplayTitle returns the custom title, or "Semana de DD/MM/YYYY" built from
// CreatedAt in loc.
func (h WeeklyHistory) DisplayTitle(loc *time.Location) string {
	if h.Title != nil && strings.TrimSpace(*h.Title) != "" {
		return *h.Title
	}
	return "Semana de " + FormatDateBR(h.CreatedAt, loc)
}

// FormatDateBR renders an RFC3339 timestamp as DD/MM/YYYY in loc. Unparsable
// input is returned unchanged.
func FormatDateBR(ts string, loc *time.Location) string {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		if d, derr := time.Parse(DateLayout, ts); derr == nil {
			return d.Format("02/01/2006")
		}
		return ts
	}
	if loc != nil {
		parsed = parsed.In(loc)
	}
	return parsed.Format("02/01/2006")
}

type ActivityLog struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id,omitempty"`
	Action      string `json:"action" enum:"CREATE,UPDATE,DELETE"`
	Description string `json:"description"`
	TS          string `json:"ts" format:"date-time"`
}

type ChatChannel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsLocked  bool   `json:"is_locked"`
	LockedBy  string `json:"locked_by,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ChatMessage struct {
	ID        string  `json:"id"`
	ChannelID string  `json:"channel_id"`
	UserID    *string `json:"user_id,omitempty"`
	Role      string  `json:"role" enum:"user,model"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidateTask checks required fields and enumerations. Duration syntax is
// checked by the caller.
func ValidateTask(t Task) error {
	switch {
	case strings.TrimSpace(t.ProjectID) == "":
		return ValidationError{Field: "project_id", Message: "is required"}
	case strings.TrimSpace(t.CollaboratorID) == "":
		return ValidationError{Field: "collaborator_id", Message: "is required"}
	case strings.TrimSpace(t.PlannedActivity) == "":
		return ValidationError{Field: "planned_activity", Message: "is required"}
	case !oneOf(t.Priority, TaskPriorities):
		return ValidationError{Field: "priority", Message: fmt.Sprintf("%q is not one of %s", t.Priority, strings.Join(TaskPriorities, ", "))}
	case !oneOf(t.Status, TaskStatuses):
		return ValidationError{Field: "status", Message: fmt.Sprintf("%q is not one of %s", t.Status, strings.Join(TaskStatuses, ", "))}
	case !ValidDate(t.DueDate):
		return ValidationError{Field: "due_date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", t.DueDate)}
	}
	return nil
}

// ValidateBoardTask checks title, status and optional dates.
func ValidateBoardTask(b BoardTask) error {
	if strings.TrimSpace(b.Title) == "" {
		return ValidationError{Field: "title", Message: "is required"}
	}
	if !ValidBoardStatus(b.Status) {
		return ValidationError{Field: "status", Message: fmt.Sprintf("%q is not one of %s", b.Status, strings.Join(BoardStatuses, ", "))}
	}
	if b.StartDate != "" && !ValidDate(b.StartDate) {
		return ValidationError{Field: "start_date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", b.StartDate)}
	}
	if b.EndDate != "" && !ValidDate(b.EndDate) {
		return ValidationError{Field: "end_date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", b.EndDate)}
	}
	for i, st := range b.Subtasks {
		if strings.TrimSpace(st.Title) == "" {
			return ValidationError{Field: fmt.Sprintf("subtasks[%d].title", i), Message: "is required"}
		}
	}
	return nil
}

// ValidateProfile checks name and role.
func ValidateProfile(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return ValidationError{Field: "name", Message: "is required"}
	}
	if p.Role != RoleAdmin && p.Role != RoleUser {
		return ValidationError{Field: "role", Message: fmt.Sprintf("%q is not one of admin, user", p.Role)}
	}
	return nil
}
