package flow

import (
	"sort"
	"time"
)

const (
	harmonyMinSessions = 10
	harmonyTopN        = 10
	unknownTaskTitle   = "Unknown"
)

// TaskFlow summarizes the focus spent on one task.
type TaskFlow struct {
	TaskID            string `json:"task_id"`
	TaskTitle         string `json:"task_title"`
	TotalFocusMinutes int    `json:"total_focus_minutes"`
	SessionCount      int    `json:"session_count"`
	// EstimatedMinutes is reserved for task estimates; the task
	// records carry none yet, so it is always nil.
	EstimatedMinutes *int `json:"estimated_minutes"`
}

// TaskFlowHarmonyResult ranks tasks by focus time.
type TaskFlowHarmonyResult struct {
	HasEnoughData bool       `json:"has_enough_data"`
	Tasks         []TaskFlow `json:"tasks"`
}

// TaskFlowHarmony ranks the top ten tasks by total focus minutes
// across tagged sessions.
func TaskFlowHarmony(
	sessions []Session, tasks []Task, _ time.Time,
) TaskFlowHarmonyResult {
	var tagged []Session
	for _, s := range sessions {
		if s.TaskID != nil {
			tagged = append(tagged, s)
		}
	}
	if len(tagged) < harmonyMinSessions {
		return TaskFlowHarmonyResult{Tasks: []TaskFlow{}}
	}

	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}

	type agg struct {
		id      string
		minutes float64
		count   int
	}
	var order []*agg
	byID := make(map[string]*agg)
	for _, s := range tagged {
		a, ok := byID[*s.TaskID]
		if !ok {
			a = &agg{id: *s.TaskID}
			byID[a.id] = a
			order = append(order, a)
		}
		a.minutes += durationMinutes(s)
		a.count++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].minutes > order[j].minutes
	})

	n := min(len(order), harmonyTopN)
	out := make([]TaskFlow, n)
	for i, a := range order[:n] {
		title, ok := titles[a.id]
		if !ok {
			title = unknownTaskTitle
		}
		out[i] = TaskFlow{
			TaskID:            a.id,
			TaskTitle:         title,
			TotalFocusMinutes: roundInt(a.minutes),
			SessionCount:      a.count,
		}
	}
	return TaskFlowHarmonyResult{HasEnoughData: true, Tasks: out}
}
