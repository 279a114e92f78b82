package server

import (
	"vontta/internal/domain"
	"vontta/internal/engine"
)

// Request payloads

type DevLoginRequest struct {
	UserID string `json:"user_id"`
}

type SubtaskRequest struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed,omitempty"`
}

type CreateBoardTaskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	StartDate   string           `json:"start_date,omitempty"`
	EndDate     string           `json:"end_date,omitempty"`
	MemberIDs   []string         `json:"member_ids,omitempty"`
	Status      string           `json:"status,omitempty" enum:"TODO,DOING,DONE,CANCELED"`
	Subtasks    []SubtaskRequest `json:"subtasks,omitempty"`
}

type UpdateBoardTaskRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	StartDate   *string           `json:"start_date,omitempty"`
	EndDate     *string           `json:"end_date,omitempty"`
	MemberIDs   *[]string         `json:"member_ids,omitempty"`
	Status      *string           `json:"status,omitempty" enum:"TODO,DOING,DONE,CANCELED"`
	Subtasks    *[]SubtaskRequest `json:"subtasks,omitempty"`
}

type MoveBoardTaskRequest struct {
	Status string `json:"status" enum:"TODO,DOING,DONE,CANCELED"`
}

type MoveTaskRequest struct {
	DueDate string `json:"due_date" format:"date"`
}

type NameRequest struct {
	Name string `json:"name"`
}

type RenameHistoryRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// Response payloads

type MeResponse struct {
	Profile domain.Profile `json:"profile"`
	Source  string         `json:"source" enum:"jwt,api_key,legacy_header"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	// Key is only present right after creation.
	Key string `json:"key,omitempty"`
}

type HistorySummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	StartDate      string `json:"start_date" format:"date-time"`
	EndDate        string `json:"end_date" format:"date-time"`
	TotalHours     string `json:"total_hours"`
	TasksCompleted int    `json:"tasks_completed"`
	TasksPending   int    `json:"tasks_pending"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

type HoursResponse struct {
	CollaboratorID string `json:"collaborator_id,omitempty"`
	TotalHours     string `json:"total_hours"`
}

type listBody[T any] struct {
	Items []T `json:"items"`
}

func itemsOf[T any](items []T) listBody[T] {
	if items == nil {
		items = []T{}
	}
	return listBody[T]{Items: items}
}

func subtasksFrom(in []SubtaskRequest) []domain.Subtask {
	if in == nil {
		return nil
	}
	out := make([]domain.Subtask, len(in))
	for i, st := range in {
		out[i] = domain.Subtask{ID: st.ID, Title: st.Title, Completed: st.Completed}
	}
	return out
}

func (r CreateBoardTaskRequest) input() engine.BoardTaskInput {
	return engine.BoardTaskInput{
		Title:       r.Title,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		MemberIDs:   r.MemberIDs,
		Status:      r.Status,
		Subtasks:    subtasksFrom(r.Subtasks),
	}
}

func (r UpdateBoardTaskRequest) patch() domain.BoardTaskPatch {
	p := domain.BoardTaskPatch{
		Title:       r.Title,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		MemberIDs:   r.MemberIDs,
		Status:      r.Status,
	}
	if r.Subtasks != nil {
		st := subtasksFrom(*r.Subtasks)
		if st == nil {
			st = []domain.Subtask{}
		}
		p.Subtasks = &st
	}
	return p
}

func apiKeyResponse(k domain.APIKey, raw string) APIKeyResponse {
	return APIKeyResponse{ID: k.ID, UserID: k.UserID, Name: k.Name, CreatedAt: k.CreatedAt, Key: raw}
}
