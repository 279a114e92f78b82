// Package aggregate computes dashboard figures from task collections. Every
// function is pure: inputs are never modified and equal inputs give equal
// outputs.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"vontta/internal/domain"
)

const (
	// DefaultCapacityMinutes is a 44h week.
	DefaultCapacityMinutes = 44 * 60
	// DefaultElevatedMinutes is where the elevated tier begins (exclusive).
	DefaultElevatedMinutes = 40 * 60
	// TopProjects bounds HoursByProject.
	TopProjects = 5
	// UnknownProject labels hours whose project no longer exists.
	UnknownProject = "Desconhecido"
)

// ParseDuration reads an HH:mm string into minutes. Minutes above 59 are
// accepted as-is. ok is false for empty or malformed input.
func ParseDuration(s string) (minutes int, ok bool) {
	s = strings.TrimSpace(s)
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	hours, ok := parseUint(h)
	if !ok {
		return 0, false
	}
	mins, ok := parseUint(m)
	if !ok {
		return 0, false
	}
	return hours*60 + mins, true
}

func parseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatMinutes renders minutes as zero-padded HH:mm.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func sumMinutes(tasks []domain.Task, collaboratorID string) int {
	total := 0
	for _, t := range tasks {
		if collaboratorID != "" && t.CollaboratorID != collaboratorID {
			continue
		}
		if m, ok := ParseDuration(t.HoursDedicated); ok {
			total += m
		}
	}
	return total
}

// TotalHours sums the dedicated hours of tasks, restricted to one
// collaborator when collaboratorID is not empty. Malformed durations are
// skipped.
func TotalHours(tasks []domain.Task, collaboratorID string) string {
	return FormatMinutes(sumMinutes(tasks, collaboratorID))
}

type ProjectHour struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Minutes   int    `json:"minutes"`
	Hours     string `json:"hours"`
}

type ProjectHours struct {
	Entries []ProjectHour `json:"entries"`
	// Max is the largest Minutes value in Entries, or 1 when Entries is empty.
	Max int `json:"max"`
}

// HoursByProject ranks projects by dedicated minutes and keeps the top five.
func HoursByProject(tasks []domain.Task, projects []domain.Project) ProjectHours {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	byProject := map[string]int{}
	for _, t := range tasks {
		if m, ok := ParseDuration(t.HoursDedicated); ok && m > 0 {
			byProject[t.ProjectID] += m
		}
	}
	entries := make([]ProjectHour, 0, len(byProject))
	for id, m := range byProject {
		name, ok := names[id]
		if !ok {
			name = UnknownProject
		}
		entries = append(entries, ProjectHour{ProjectID: id, Name: name, Minutes: m, Hours: FormatMinutes(m)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Minutes != entries[j].Minutes {
			return entries[i].Minutes > entries[j].Minutes
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ProjectID < entries[j].ProjectID
	})
	if len(entries) > TopProjects {
		entries = entries[:TopProjects]
	}
	top := 1
	if len(entries) > 0 {
		top = entries[0].Minutes
	}
	return ProjectHours{Entries: entries, Max: top}
}

type Completion struct {
	Percent   int `json:"percent"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Total     int `json:"total"`
}

// CompletionRate counts completed tasks; everything else is pending.
func CompletionRate(tasks []domain.Task) Completion {
	c := Completion{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed() {
			c.Completed++
		}
	}
	c.Pending = c.Total - c.Completed
	if c.Total > 0 {
		c.Percent = int(math.Round(100 * float64(c.Completed) / float64(c.Total)))
	}
	return c
}

// Load tiers.
const (
	TierNormal   = "normal"
	TierElevated = "elevated"
	TierOver     = "over_capacity"
)

type LoadOptions struct {
	CapacityMinutes int
	ElevatedMinutes int
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.CapacityMinutes <= 0 {
		o.CapacityMinutes = DefaultCapacityMinutes
	}
	if o.ElevatedMinutes <= 0 || o.ElevatedMinutes > o.CapacityMinutes {
		o.ElevatedMinutes = DefaultElevatedMinutes
		if o.ElevatedMinutes > o.CapacityMinutes {
			o.ElevatedMinutes = o.CapacityMinutes
		}
	}
	return o
}

type Load struct {
	UserID  string  `json:"user_id"`
	Name    string  `json:"name"`
	Minutes int     `json:"minutes"`
	Hours   string  `json:"hours"`
	Percent float64 `json:"percent"`
	Tier    string  `json:"tier" enum:"normal,elevated,over_capacity"`
}

// CollaboratorLoad reports every user's booked minutes against capacity,
// busiest first. Percent is capped at 100; Minutes is not.
func CollaboratorLoad(tasks []domain.Task, users []domain.Profile, opts LoadOptions) []Load {
	opts = opts.withDefaults()
	byUser := map[string]int{}
	for _, t := range tasks {
		if m, ok := ParseDuration(t.HoursDedicated); ok {
			byUser[t.CollaboratorID] += m
		}
	}
	loads := make([]Load, 0, len(users))
	for _, u := range users {
		m := byUser[u.ID]
		pct := math.Min(100, 100*float64(m)/float64(opts.CapacityMinutes))
		loads = append(loads, Load{
			UserID:  u.ID,
			Name:    u.Name,
			Minutes: m,
			Hours:   FormatMinutes(m),
			Percent: pct,
			Tier:    tierFor(m, opts),
		})
	}
	sort.SliceStable(loads, func(i, j int) bool {
		if loads[i].Minutes != loads[j].Minutes {
			return loads[i].Minutes > loads[j].Minutes
		}
		if loads[i].Name != loads[j].Name {
			return loads[i].Name < loads[j].Name
		}
		return loads[i].UserID < loads[j].UserID
	})
	return loads
}

func tierFor(minutes int, opts LoadOptions) string {
	switch {
	case minutes > opts.CapacityMinutes:
		return TierOver
	case minutes > opts.ElevatedMinutes:
		return TierElevated
	default:
		return TierNormal
	}
}
