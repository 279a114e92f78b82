package domain

// TaskPatch carries a partial task update. A non-nil field overwrites the
// stored value, including with the empty string; a nil field leaves it alone.
// Sector is not patchable: it follows ProjectID.
type TaskPatch struct {
	ProjectID         *string `json:"project_id,omitempty"`
	CollaboratorID    *string `json:"collaborator_id,omitempty"`
	PlannedActivity   *string `json:"planned_activity,omitempty"`
	DeliveredActivity *string `json:"delivered_activity,omitempty"`
	Priority          *string `json:"priority,omitempty" enum:"Baixa,Média,Alta,Crítica"`
	Status            *string `json:"status,omitempty" enum:"Pendente,Em Andamento,Concluído,Bloqueado"`
	DueDate           *string `json:"due_date,omitempty"`
	HoursDedicated    *string `json:"hours_dedicated,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.ProjectID == nil && p.CollaboratorID == nil && p.PlannedActivity == nil &&
		p.DeliveredActivity == nil && p.Priority == nil && p.Status == nil &&
		p.DueDate == nil && p.HoursDedicated == nil && p.Notes == nil
}

// ReassignsProject reports whether applying p to t moves it to another project.
func (p TaskPatch) ReassignsProject(t Task) bool {
	return p.ProjectID != nil && *p.ProjectID != t.ProjectID
}

// Apply returns t with every present field of p written over it.
func (p TaskPatch) Apply(t Task) Task {
	set(&t.ProjectID, p.ProjectID)
	set(&t.CollaboratorID, p.CollaboratorID)
	set(&t.PlannedActivity, p.PlannedActivity)
	set(&t.DeliveredActivity, p.DeliveredActivity)
	set(&t.Priority, p.Priority)
	set(&t.Status, p.Status)
	set(&t.DueDate, p.DueDate)
	set(&t.HoursDedicated, p.HoursDedicated)
	set(&t.Notes, p.Notes)
	return t
}

// BoardTaskPatch follows the same merge rule as TaskPatch.
type BoardTaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *string    `json:"start_date,omitempty"`
	EndDate     *string    `json:"end_date,omitempty"`
	MemberIDs   *[]string  `json:"member_ids,omitempty"`
	Status      *string    `json:"status,omitempty" enum:"TODO,DOING,DONE,CANCELED"`
	Subtasks    *[]Subtask `json:"subtasks,omitempty"`
}

func (p BoardTaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.StartDate == nil && p.EndDate == nil &&
		p.MemberIDs == nil && p.Status == nil && p.Subtasks == nil
}

func (p BoardTaskPatch) Apply(b BoardTask) BoardTask {
	b = b.Clone()
	set(&b.Title, p.Title)
	set(&b.Description, p.Description)
	set(&b.StartDate, p.StartDate)
	set(&b.EndDate, p.EndDate)
	set(&b.Status, p.Status)
	if p.MemberIDs != nil {
		b.MemberIDs = append([]string{}, (*p.MemberIDs)...)
	}
	if p.Subtasks != nil {
		b.Subtasks = append([]Subtask{}, (*p.Subtasks)...)
	}
	return b
}

type ProfilePatch struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Role   *string `json:"role,omitempty" enum:"admin,user"`
	Sector *string `json:"sector,omitempty"`
}

func (p ProfilePatch) Apply(u Profile) Profile {
	set(&u.Name, p.Name)
	set(&u.Email, p.Email)
	set(&u.Avatar, p.Avatar)
	set(&u.Role, p.Role)
	set(&u.Sector, p.Sector)
	return u
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
