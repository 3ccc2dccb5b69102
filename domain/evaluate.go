package domain

import (
	"fmt"
	"time"
)

// ApproachWindow is how close a deadline has to be before it counts as
// approaching.
const ApproachWindow = 30 * time.Minute

// AlertKind names one of the three reminder conditions.
type AlertKind string

const (
	AlertNotify      AlertKind = "notify"
	AlertOverdue     AlertKind = "overdue"
	AlertApproaching AlertKind = "approaching"
)

// Alert is one reminder produced by an evaluation pass.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	TaskID  string    `json:"taskId"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// Evaluate classifies every incomplete task against now and returns one alert
// per condition that holds. Overdue and approaching are exclusive per pass;
// the notify-time condition is independent and may co-occur with either.
// Completed tasks never alert. Pure: re-running with the same snapshot and
// the same now yields the same alerts, and no deduplication happens across
// passes, so a still-due task alerts again on the next pass.
func Evaluate(tasks []Task, now time.Time) []Alert {
	var alerts []Alert
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if !now.Before(t.NotifyTime.Time) && t.NotifyTime.After(NeverNotify.Time) {
			alerts = append(alerts, Alert{
				Kind:    AlertNotify,
				TaskID:  t.ID,
				Title:   "Task Notification",
				Message: fmt.Sprintf("Task '%s' notification time reached!", t.Name),
			})
		}
		if t.Deadline.Before(now) {
			alerts = append(alerts, Alert{
				Kind:    AlertOverdue,
				TaskID:  t.ID,
				Title:   "Task Overdue!",
				Message: fmt.Sprintf("Task '%s' is overdue!", t.Name),
			})
		} else if t.Deadline.Sub(now) < ApproachWindow {
			alerts = append(alerts, Alert{
				Kind:    AlertApproaching,
				TaskID:  t.ID,
				Title:   "Task Deadline Approaching",
				Message: fmt.Sprintf("Task '%s' deadline is approaching!", t.Name),
			})
		}
	}
	return alerts
}
