package domain

import (
	"encoding/json"
	"time"
)

// StampLayout is the minute-resolution timestamp format used everywhere:
// stored records, request bodies and responses.
const StampLayout = "2006-01-02 15:04"

// Stamp is a minute-resolution timestamp in the process-local zone.
type Stamp struct {
	time.Time
}

// NeverNotify is the epoch sentinel meaning "no explicit notification time".
var NeverNotify = Stamp{time.Date(1970, 1, 1, 0, 0, 0, 0, time.Local)}

// NewStamp truncates t to the minute.
func NewStamp(t time.Time) Stamp {
	return Stamp{t.Truncate(time.Minute)}
}

// ParseStamp parses a timestamp in StampLayout, local zone.
func ParseStamp(s string) (Stamp, error) {
	t, err := time.ParseInLocation(StampLayout, s, time.Local)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{t}, nil
}

func (s Stamp) String() string {
	return s.Format(StampLayout)
}

func (s Stamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Format(StampLayout))
}

func (s *Stamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStamp(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Priority ranks a task. The set is fixed.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority validates a priority label.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	}
	return "", ValidationError("priority must be one of High, Medium or Low")
}

// Task is the sole persisted entity.
type Task struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Deadline    Stamp    `json:"deadline"`
	NotifyTime  Stamp    `json:"notifyTime"`
	AssignedBy  string   `json:"assignedBy"`
	Designation string   `json:"designation"`
	Priority    Priority `json:"priority"`
	Completed   bool     `json:"completed"`
}

// NewTaskInput carries the fields of a task being created. The id and the
// completed flag are assigned by the store.
type NewTaskInput struct {
	Name        string
	Deadline    Stamp
	NotifyTime  Stamp
	AssignedBy  string
	Designation string
	Priority    Priority
}

// ValidationError reports user input rejected at submission time.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Validate enforces the creation rules: no empty fields, no past dates.
func (in NewTaskInput) Validate(now time.Time) error {
	if in.Name == "" {
		return ValidationError("please enter a task name")
	}
	if in.AssignedBy == "" {
		return ValidationError("please enter the name of the person who assigned the task")
	}
	if in.Designation == "" {
		return ValidationError("please enter the designation of the person")
	}
	if in.Deadline.Before(now) || in.NotifyTime.Before(now) {
		return ValidationError("date is invalid: you cannot select past dates for deadline or notify time")
	}
	return nil
}
