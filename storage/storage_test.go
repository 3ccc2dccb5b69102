package storage

import (
	"strings"
	"testing"

	"taskwatch/domain"
)

func TestDecodeTaskEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"tasks","RowKey":"1755861600000000001","Name":"write report","Deadline":"2026-08-22 18:00","NotifyTime":"2026-08-22 17:30","AssignedBy":"Dana","Designation":"Manager","Priority":"High","Completed":true}`)
	task, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.ID != "1755861600000000001" || task.Name != "write report" || !task.Completed {
		t.Fatalf("unexpected task: %#v", task)
	}
	if task.Deadline.String() != "2026-08-22 18:00" || task.NotifyTime.String() != "2026-08-22 17:30" {
		t.Fatalf("unexpected stamps: %v / %v", task.Deadline, task.NotifyTime)
	}
	if task.AssignedBy != "Dana" || task.Designation != "Manager" || task.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected fields: %#v", task)
	}
}

func TestDecodeTaskEntityLegacyDefaults(t *testing.T) {
	// Rows written before the notify time, requester fields and priority
	// existed decode to the fixed defaults.
	data := []byte(`{"PartitionKey":"tasks","RowKey":"42","Name":"old row","Deadline":"2026-01-05 09:00","Completed":false}`)
	task, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode legacy row: %v", err)
	}
	if !task.NotifyTime.Equal(domain.NeverNotify.Time) {
		t.Fatalf("expected sentinel notify time, got %v", task.NotifyTime)
	}
	if task.AssignedBy != "" || task.Designation != "" {
		t.Fatalf("expected empty requester fields, got %#v", task)
	}
	if task.Priority != domain.PriorityMedium {
		t.Fatalf("expected Medium priority, got %q", task.Priority)
	}
}

func TestDecodeTaskEntityBadTimestamps(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "bad deadline",
			data: `{"PartitionKey":"tasks","RowKey":"7","Name":"x","Deadline":"tomorrow","Completed":false}`,
		},
		{
			name: "missing deadline",
			data: `{"PartitionKey":"tasks","RowKey":"7","Name":"x","Completed":false}`,
		},
		{
			name: "bad notify time",
			data: `{"PartitionKey":"tasks","RowKey":"7","Name":"x","Deadline":"2026-01-05 09:00","NotifyTime":"09:00","Completed":false}`,
		},
		{
			name: "bad priority",
			data: `{"PartitionKey":"tasks","RowKey":"7","Name":"x","Deadline":"2026-01-05 09:00","Priority":"Urgent","Completed":false}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeTaskEntity([]byte(tt.data))
			if err == nil {
				t.Fatal("expected decode error")
			}
			if !strings.Contains(err.Error(), "7") {
				t.Fatalf("error should name the row, got %q", err.Error())
			}
		})
	}
}

func TestNewTaskEntityRoundTrip(t *testing.T) {
	deadline, err := domain.ParseStamp("2026-08-22 18:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	task := domain.Task{
		ID:          "99",
		Name:        "ship release",
		Deadline:    deadline,
		NotifyTime:  domain.NeverNotify,
		AssignedBy:  "Lee",
		Designation: "Lead",
		Priority:    domain.PriorityLow,
		Completed:   false,
	}
	ent := newTaskEntity(task)
	if ent.PartitionKey != taskPartition || ent.RowKey != "99" {
		t.Fatalf("unexpected keys: %#v", ent.Entity)
	}
	if ent.NotifyTime != "1970-01-01 00:00" {
		t.Fatalf("sentinel should store as the epoch stamp, got %q", ent.NotifyTime)
	}
	if ent.Deadline != "2026-08-22 18:00" || ent.Priority != "Low" {
		t.Fatalf("unexpected entity: %#v", ent)
	}
}

func TestDecodeSchemaEntity(t *testing.T) {
	version, err := decodeSchemaEntity([]byte(`{"PartitionKey":"meta","RowKey":"schema","Version":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if version != 1 {
		t.Fatalf("unexpected version: %d", version)
	}
	if _, err := decodeSchemaEntity([]byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNextTimestampStrictlyIncreasing(t *testing.T) {
	prev := nextTimestamp()
	for i := 0; i < 1000; i++ {
		next := nextTimestamp()
		if next <= prev {
			t.Fatalf("timestamps not increasing: %d then %d", prev, next)
		}
		prev = next
	}
}
