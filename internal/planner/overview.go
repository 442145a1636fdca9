package planner

import (
	"sort"

	"github.com/julianstephens/studylit/internal/models"
)

// SubjectOverview is the weekly share of one subject.
type SubjectOverview struct {
	SubjectID    string  `json:"subject_id"`
	PlannedMin   int     `json:"planned_min"`
	Sessions     int     `json:"sessions"`
	Percent      float64 `json:"percent"`
	CompletedMin int     `json:"completed_min"`
	Skipped      int     `json:"skipped"`
}

// Overview summarizes a plan and, optionally, how it has been followed so far.
type Overview struct {
	WeekStart    string            `json:"week_start"`
	Revision     int               `json:"revision"`
	TotalMin     int               `json:"total_min"`
	Sessions     int               `json:"sessions"`
	CompletedMin int               `json:"completed_min"`
	Completed    int               `json:"completed"`
	Skipped      int               `json:"skipped"`
	ByDay        map[string]int    `json:"by_day"`
	Subjects     []SubjectOverview `json:"subjects"`
}

// Summarize builds the weekly overview of a plan. States may be nil.
func Summarize(plan models.WeeklyPlan, states []models.SessionState) Overview {
	ov := Overview{
		WeekStart: plan.WeekStart,
		Revision:  plan.Revision,
		Sessions:  len(plan.Sessions),
		ByDay:     make(map[string]int),
	}

	statusByID := make(map[string]models.SessionState, len(states))
	for _, st := range states {
		statusByID[st.SessionID] = st
	}

	bySubject := make(map[string]*SubjectOverview)
	for _, s := range plan.Sessions {
		ov.TotalMin += s.PlannedMin
		ov.ByDay[s.Start.Weekday().String()] += s.PlannedMin

		so, ok := bySubject[s.SubjectID]
		if !ok {
			so = &SubjectOverview{SubjectID: s.SubjectID}
			bySubject[s.SubjectID] = so
		}
		so.PlannedMin += s.PlannedMin
		so.Sessions++

		switch st := statusByID[s.ID]; st.Status {
		case models.SessionCompleted:
			ov.Completed++
			ov.CompletedMin += st.ActualMin
			so.CompletedMin += st.ActualMin
		case models.SessionSkipped:
			ov.Skipped++
			so.Skipped++
		}
	}

	for _, so := range bySubject {
		if ov.TotalMin > 0 {
			so.Percent = float64(so.PlannedMin) / float64(ov.TotalMin) * 100
		}
		ov.Subjects = append(ov.Subjects, *so)
	}
	sort.Slice(ov.Subjects, func(i, j int) bool {
		if ov.Subjects[i].PlannedMin != ov.Subjects[j].PlannedMin {
			return ov.Subjects[i].PlannedMin > ov.Subjects[j].PlannedMin
		}
		return ov.Subjects[i].SubjectID < ov.Subjects[j].SubjectID
	})
	return ov
}
