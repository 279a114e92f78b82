// Package planner lays tasks out on the Monday to Friday working week.
package planner

import (
	"sort"
	"time"

	"vontta/internal/domain"
)

// Day is one working day and the tasks due on it.
type Day struct {
	Date    string        `json:"date" format:"date"`
	Weekday string        `json:"weekday"`
	Tasks   []domain.Task `json:"tasks"`
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "Segunda",
	time.Tuesday:   "Terça",
	time.Wednesday: "Quarta",
	time.Thursday:  "Quinta",
	time.Friday:    "Sexta",
}

// WeekDays returns Monday through Friday of the week containing now, as
// calendar dates in loc. Saturday and Sunday belong to the week that just
// ended.
func WeekDays(now time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	y, m, d := local.Date()
	monday := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	days := make([]time.Time, 5)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

// TasksOn returns the tasks due on date (YYYY-MM-DD), ordered by priority
// (critical first) and then by planned activity.
func TasksOn(tasks []domain.Task, date string) []domain.Task {
	out := []domain.Task{}
	for _, t := range tasks {
		if t.DueDate == date {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priorityRank(out[i].Priority), priorityRank(out[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return out[i].PlannedActivity < out[j].PlannedActivity
	})
	return out
}

// Week groups tasks onto the working days of now's week. When collaboratorID
// is set only that collaborator's tasks are placed.
func Week(tasks []domain.Task, collaboratorID string, now time.Time, loc *time.Location) []Day {
	if collaboratorID != "" {
		own := make([]domain.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.CollaboratorID == collaboratorID {
				own = append(own, t)
			}
		}
		tasks = own
	}
	days := WeekDays(now, loc)
	out := make([]Day, len(days))
	for i, d := range days {
		date := d.Format(domain.DateLayout)
		out[i] = Day{Date: date, Weekday: weekdayNames[d.Weekday()], Tasks: TasksOn(tasks, date)}
	}
	return out
}

func priorityRank(p string) int {
	switch p {
	case domain.PriorityCritical:
		return 0
	case domain.PriorityHigh:
		return 1
	case domain.PriorityMedium:
		return 2
	case domain.PriorityLow:
		return 3
	}
	return 4
}
