package domain

import "time"

// TrendDays is the length of the created/completed trend window.
const TrendDays = 7

// Summary is the aggregate view over one user's tasks and projects. It is
// derived entirely from the in-memory collections; nothing here is persisted.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`

	CompletionRate    float64 `json:"completionRate"`
	AvgCompletionDays float64 `json:"avgCompletionDays"`

	ByStatus   map[Status]int   `json:"byStatus"`
	ByPriority map[Priority]int `json:"byPriority"`

	Projects []ProjectCompletion `json:"projects"`
	Trend    []TrendPoint        `json:"trend"`
}

// ProjectCompletion is the per-project completion breakdown.
type ProjectCompletion struct {
	ProjectID string  `json:"projectId"`
	Name      string  `json:"name"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Rate      float64 `json:"rate"`
}

// TrendPoint counts tasks created and completed on one calendar day.
type TrendPoint struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// Aggregate computes the summary for the given collections. Rates are 0 when
// their denominator is 0, never NaN. The trend covers the TrendDays calendar
// days ending at now, oldest first, in now's location.
func Aggregate(tasks []Task, projects []Project, now time.Time) Summary {
	s := Summary{
		ByStatus:   make(map[Status]int, len(Statuses)),
		ByPriority: make(map[Priority]int, 4),
	}

	var completionSum time.Duration
	completionSamples := 0
	perProject := make(map[string]*ProjectCompletion, len(projects))

	for _, t := range tasks {
		s.Total++
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++

		done := t.Status == StatusDone
		if done {
			s.Completed++
		} else {
			s.Pending++
			if t.Deadline != nil && t.Deadline.Before(now) {
				s.Overdue++
			}
		}
		if t.CompletedAt != nil && !t.CreatedAt.IsZero() {
			completionSum += t.CompletedAt.Sub(t.CreatedAt)
			completionSamples++
		}

		pc := perProject[t.ProjectID]
		if pc == nil {
			pc = &ProjectCompletion{ProjectID: t.ProjectID}
			perProject[t.ProjectID] = pc
		}
		pc.Total++
		if done {
			pc.Completed++
		}
	}

	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total)
	}
	if completionSamples > 0 {
		s.AvgCompletionDays = completionSum.Hours() / 24 / float64(completionSamples)
	}

	// Keep the project order stable by walking the project list rather than
	// the map. Projects with no tasks still appear with zero counts.
	s.Projects = make([]ProjectCompletion, 0, len(projects))
	for _, p := range projects {
		pc := perProject[p.ID]
		if pc == nil {
			pc = &ProjectCompletion{ProjectID: p.ID}
		}
		pc.Name = p.Name
		if pc.Total > 0 {
			pc.Rate = float64(pc.Completed) / float64(pc.Total)
		}
		s.Projects = append(s.Projects, *pc)
	}

	s.Trend = trend(tasks, now)
	return s
}

func trend(tasks []Task, now time.Time) []TrendPoint {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	points := make([]TrendPoint, TrendDays)
	index := make(map[string]int, TrendDays)
	for i := 0; i < TrendDays; i++ {
		day := today.AddDate(0, 0, i-TrendDays+1)
		key := day.Format("2006-01-02")
		points[i] = TrendPoint{Date: key}
		index[key] = i
	}

	for _, t := range tasks {
		if !t.CreatedAt.IsZero() {
			if i, ok := index[t.CreatedAt.In(loc).Format("2006-01-02")]; ok {
				points[i].Created++
			}
		}
		if t.CompletedAt != nil {
			if i, ok := index[t.CompletedAt.In(loc).Format("2006-01-02")]; ok {
				points[i].Completed++
			}
		}
	}
	return points
}
