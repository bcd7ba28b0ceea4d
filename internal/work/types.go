// Package work provides an event-driven background work processor with a
// durable queue. Long-running jobs (deposit verification above all) are
// enqueued as work items, executed one at a time with retry and timeout
// supervision, and survive process restarts via the work database.
package work

import (
	"context"
	"strings"
	"time"
)

// WorkTimeout is the maximum duration a work item can run before being cancelled.
const WorkTimeout = 5 * time.Minute

// MaxRetries is the maximum number of times a failed work item will be retried.
const MaxRetries = 5

// Priority defines the execution priority of work types.
type Priority int

const (
	// PriorityLow is for non-urgent work (maintenance, cleanup).
	PriorityLow Priority = iota
	// PriorityMedium is for regular background work.
	PriorityMedium
	// PriorityHigh is for work a user is waiting on (deposit verification).
	PriorityHigh
)

// String returns a human-readable name for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// WorkType defines a type of work that can be executed.
// Work types are registered once and can generate multiple work items.
type WorkType struct {
	// ID is the unique identifier for this work type (e.g., "deposit:verify").
	ID string

	// Priority determines execution order when multiple work items are eligible.
	Priority Priority

	// FindSubjects returns subjects (account IDs) with pending work of this
	// type. Returns nil if no work is needed.
	FindSubjects func() []string

	// Execute performs the work for a given subject.
	Execute func(ctx context.Context, subject string) error
}

// WorkItem represents a specific unit of work to be executed.
type WorkItem struct {
	// ID is the full work ID including subject (e.g., "deposit:verify:acc-42").
	ID string

	// TypeID is the work type ID (e.g., "deposit:verify").
	TypeID string

	// Subject is the account ID the work applies to.
	Subject string

	// Retries is the number of times this item has been retried.
	Retries int

	// CreatedAt is when this work item was created.
	CreatedAt time.Time
}

// WorkID builds the full work item id from a type and subject.
func WorkID(typeID, subject string) string {
	if subject == "" {
		return typeID
	}
	return typeID + ":" + subject
}

// NewWorkItem creates a new work item from a work type and subject.
func NewWorkItem(workType *WorkType, subject string) *WorkItem {
	return &WorkItem{
		ID:        WorkID(workType.ID, subject),
		TypeID:    workType.ID,
		Subject:   subject,
		CreatedAt: time.Now(),
	}
}

// ParseWorkID extracts the work type ID and subject from a full work ID.
// For example, "deposit:verify:acc-42" returns ("deposit:verify", "acc-42").
func ParseWorkID(id string) (typeID string, subject string) {
	parts := strings.Split(id, ":")
	if len(parts) <= 2 {
		return id, ""
	}

	return strings.Join(parts[:len(parts)-1], ":"), parts[len(parts)-1]
}
