package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"taskwatch/domain"
)

const (
	// taskPartition holds every task row. Single-user store, one partition.
	taskPartition = "tasks"
	metaPartition = "meta"
)

// Storage persists tasks in a single Azure table.
type Storage struct {
	table *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable string) (*Storage, error) {
	clientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				// Every store operation is a single attempt.
				MaxRetries: -1,
				TryTimeout: time.Second * 30,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &clientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{table: svc.NewClient(tasksTable)}, nil
}

type taskEntity struct {
	aztables.Entity
	Name        string `json:"Name"`
	Deadline    string `json:"Deadline"`
	NotifyTime  string `json:"NotifyTime"`
	AssignedBy  string `json:"AssignedBy"`
	Designation string `json:"Designation"`
	Priority    string `json:"Priority"`
	Completed   bool   `json:"Completed"`
}

func newTaskEntity(t domain.Task) taskEntity {
	return taskEntity{
		Entity:      aztables.Entity{PartitionKey: taskPartition, RowKey: t.ID},
		Name:        t.Name,
		Deadline:    t.Deadline.String(),
		NotifyTime:  t.NotifyTime.String(),
		AssignedBy:  t.AssignedBy,
		Designation: t.Designation,
		Priority:    string(t.Priority),
		Completed:   t.Completed,
	}
}

// decodeTaskEntity converts a stored row back into a task. Rows written by
// older schema versions may lack the notify time, the requester fields or the
// priority; those decode to their fixed defaults. An unparsable timestamp is
// a data-integrity failure and aborts the read.
func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	deadline, err := domain.ParseStamp(ent.Deadline)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s: deadline %q: %w", ent.RowKey, ent.Deadline, err)
	}
	notifyTime := domain.NeverNotify
	if ent.NotifyTime != "" {
		notifyTime, err = domain.ParseStamp(ent.NotifyTime)
		if err != nil {
			return domain.Task{}, fmt.Errorf("task %s: notify time %q: %w", ent.RowKey, ent.NotifyTime, err)
		}
	}
	priority := domain.PriorityMedium
	if ent.Priority != "" {
		priority, err = domain.ParsePriority(ent.Priority)
		if err != nil {
			return domain.Task{}, fmt.Errorf("task %s: %w", ent.RowKey, err)
		}
	}
	return domain.Task{
		ID:          ent.RowKey,
		Name:        ent.Name,
		Deadline:    deadline,
		NotifyTime:  notifyTime,
		AssignedBy:  ent.AssignedBy,
		Designation: ent.Designation,
		Priority:    priority,
		Completed:   ent.Completed,
	}, nil
}

// CreateTask persists a new task and returns it with the store-assigned id.
// Ids are strictly increasing, so row-key order is insertion order.
func (s *Storage) CreateTask(ctx context.Context, in domain.NewTaskInput) (domain.Task, error) {
	t := domain.Task{
		ID:          strconv.FormatInt(nextTimestamp(), 10),
		Name:        in.Name,
		Deadline:    in.Deadline,
		NotifyTime:  in.NotifyTime,
		AssignedBy:  in.AssignedBy,
		Designation: in.Designation,
		Priority:    in.Priority,
		Completed:   false,
	}
	payload, err := json.Marshal(newTaskEntity(t))
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.table.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, fmt.Errorf("add task: %w", err)
	}
	return t, nil
}

// ListTasks retrieves every task in insertion order.
func (s *Storage) ListTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + taskPartition + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			t, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// GetTask returns the task with the given id, or nil when no such task exists.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	resp, err := s.table.GetEntity(ctx, taskPartition, id, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	t, err := decodeTaskEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask replaces every stored field of the task with the given id.
// A missing id is not an error.
func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	payload, err := json.Marshal(newTaskEntity(t))
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTask removes the task with the given id. A missing id is not an error.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	_, err := s.table.DeleteEntity(ctx, taskPartition, id, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}
