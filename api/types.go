package api

import (
	"context"
	"time"

	"taskwatch/domain"
)

const taskBodyMaxSize = 64 * 1024 // 64 KiB

// Storage abstracts persistence for handlers.
type Storage interface {
	CreateTask(ctx context.Context, in domain.NewTaskInput) (domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// PassRunner triggers one synchronous deadline evaluation pass.
type PassRunner interface {
	RunPass(ctx context.Context) error
}

type createTaskRequest struct {
	Name        string       `json:"name"`
	Deadline    domain.Stamp `json:"deadline"`
	NotifyTime  domain.Stamp `json:"notifyTime"`
	AssignedBy  string       `json:"assignedBy"`
	Designation string       `json:"designation"`
	Priority    string       `json:"priority"`
}

type updateTaskRequest struct {
	createTaskRequest
	Completed bool `json:"completed"`
}

// toInput applies the submission rules: priority defaults to Medium, every
// other field must pass validation against now.
func (r createTaskRequest) toInput(now time.Time) (domain.NewTaskInput, error) {
	priority := domain.PriorityMedium
	if r.Priority != "" {
		var err error
		priority, err = domain.ParsePriority(r.Priority)
		if err != nil {
			return domain.NewTaskInput{}, err
		}
	}
	in := domain.NewTaskInput{
		Name:        r.Name,
		Deadline:    r.Deadline,
		NotifyTime:  r.NotifyTime,
		AssignedBy:  r.AssignedBy,
		Designation: r.Designation,
		Priority:    priority,
	}
	if err := in.Validate(now); err != nil {
		return domain.NewTaskInput{}, err
	}
	return in, nil
}

// toTask builds the full replacement record for an update. Updates are not
// re-validated: a toggle writes back fields whose dates may since have
// passed. Omitted notifyTime and priority take the stored-schema defaults.
func (r updateTaskRequest) toTask(id string) (domain.Task, error) {
	priority := domain.PriorityMedium
	if r.Priority != "" {
		var err error
		priority, err = domain.ParsePriority(r.Priority)
		if err != nil {
			return domain.Task{}, err
		}
	}
	notify := r.NotifyTime
	if notify.IsZero() {
		notify = domain.NeverNotify
	}
	return domain.Task{
		ID:          id,
		Name:        r.Name,
		Deadline:    r.Deadline,
		NotifyTime:  notify,
		AssignedBy:  r.AssignedBy,
		Designation: r.Designation,
		Priority:    priority,
		Completed:   r.Completed,
	}, nil
}
