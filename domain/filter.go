package domain

import (
	"fmt"
	"time"
)

// NearestWindow bounds the "nearest deadline" view.
const NearestWindow = 24 * time.Hour

// View selects the display subset of a task snapshot.
type View string

const (
	ViewAll       View = "all"
	ViewCompleted View = "completed"
	ViewNearest   View = "nearest"
)

// ParseView maps a view label to a View. The empty string means ViewAll.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "":
		return ViewAll, nil
	case ViewAll, ViewCompleted, ViewNearest:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Filter projects the snapshot to the subset the view shows, preserving the
// store's retrieval order. Nearest keeps incomplete tasks whose deadline is
// strictly less than 24 hours away; an already-overdue task has a negative
// difference and is kept too.
func Filter(tasks []Task, view View, now time.Time) []Task {
	switch view {
	case ViewCompleted:
		out := []Task{}
		for _, t := range tasks {
			if t.Completed {
				out = append(out, t)
			}
		}
		return out
	case ViewNearest:
		out := []Task{}
		for _, t := range tasks {
			if !t.Completed && t.Deadline.Sub(now) < NearestWindow {
				out = append(out, t)
			}
		}
		return out
	default:
		return tasks
	}
}
