package vonttasdk

// Task is a live task.
type Task struct {
	ID                string `json:"id"`
	ProjectID         string `json:"project_id"`
	CollaboratorID    string `json:"collaborator_id"`
	Sector            string `json:"sector"`
	PlannedActivity   string `json:"planned_activity"`
	DeliveredActivity string `json:"delivered_activity"`
	Priority          string `json:"priority"`
	Status            string `json:"status"`
	DueDate           string `json:"due_date"`
	HoursDedicated    string `json:"hours_dedicated"`
	Notes             string `json:"notes"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// TaskInput creates a task. Empty fields take the server defaults.
type TaskInput struct {
	ProjectID         string `json:"project_id"`
	CollaboratorID    string `json:"collaborator_id,omitempty"`
	PlannedActivity   string `json:"planned_activity"`
	DeliveredActivity string `json:"delivered_activity,omitempty"`
	Priority          string `json:"priority,omitempty"`
	Status            string `json:"status,omitempty"`
	DueDate           string `json:"due_date,omitempty"`
	HoursDedicated    string `json:"hours_dedicated,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// TaskPatch updates only the non-nil fields.
type TaskPatch struct {
	ProjectID         *string `json:"project_id,omitempty"`
	CollaboratorID    *string `json:"collaborator_id,omitempty"`
	PlannedActivity   *string `json:"planned_activity,omitempty"`
	DeliveredActivity *string `json:"delivered_activity,omitempty"`
	Priority          *string `json:"priority,omitempty"`
	Status            *string `json:"status,omitempty"`
	DueDate           *string `json:"due_date,omitempty"`
	HoursDedicated    *string `json:"hours_dedicated,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

type Subtask struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed,omitempty"`
}

// BoardTask is a kanban card.
type BoardTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	MemberIDs   []string  `json:"member_ids"`
	Status      string    `json:"status"`
	Subtasks    []Subtask `json:"subtasks"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

type BoardTaskInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	MemberIDs   []string  `json:"member_ids,omitempty"`
	Status      string    `json:"status,omitempty"`
	Subtasks    []Subtask `json:"subtasks,omitempty"`
}

type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role"`
	Sector string `json:"sector,omitempty"`
}

type Me struct {
	Profile Profile `json:"profile"`
	Source  string  `json:"source"`
}

// CloseResult reports a week close. Archived with a false cleanup flag
// means the history exists but live rows were left behind.
type CloseResult struct {
	Archived       bool   `json:"archived"`
	HistoryID      string `json:"history_id"`
	TotalHours     string `json:"total_hours"`
	TasksCompleted int    `json:"tasks_completed"`
	TasksPending   int    `json:"tasks_pending"`
	Cleanup        struct {
		TasksDeleted      bool `json:"tasks_deleted"`
		BoardTasksDeleted bool `json:"board_tasks_deleted"`
	} `json:"cleanup"`
}

// HistorySummary is a closed week as listed; Title is already resolved.
type HistorySummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	TotalHours     string `json:"total_hours"`
	TasksCompleted int    `json:"tasks_completed"`
	TasksPending   int    `json:"tasks_pending"`
	CreatedAt      string `json:"created_at"`
}

type ActivityLog struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id,omitempty"`
	Action      string `json:"action"`
	Description string `json:"description"`
	TS          string `json:"ts"`
}

type CollaboratorLoad struct {
	UserID  string  `json:"user_id"`
	Name    string  `json:"name"`
	Minutes int     `json:"minutes"`
	Hours   string  `json:"hours"`
	Percent float64 `json:"percent"`
	Tier    string  `json:"tier"`
}

type Dashboard struct {
	TotalHours string `json:"total_hours"`
	Completion struct {
		Percent   int `json:"percent"`
		Completed int `json:"completed"`
		Pending   int `json:"pending"`
		Total     int `json:"total"`
	} `json:"completion"`
	Loads  []CollaboratorLoad `json:"loads"`
	Recent []ActivityLog      `json:"recent"`
}
