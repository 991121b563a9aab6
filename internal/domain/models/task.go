// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task priorities.
const (
	PriorityLow    = 0
	PriorityMedium = 1
	PriorityHigh   = 2
)

// Task is a unit of work owned by CreatedBy and assigned to zero or more users.
type Task struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Title       string               `bson:"title" json:"title"`
	TitleCI     string               `bson:"title_ci" json:"-"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Priority    int                  `bson:"priority" json:"priority"`
	DueDate     *time.Time           `bson:"due_date,omitempty" json:"due_date,omitempty"`
	AssignedTo  []primitive.ObjectID `bson:"assigned_to" json:"assigned_to"`

	Completed   bool                `bson:"completed" json:"completed"`
	CompletedAt *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CompletedBy *primitive.ObjectID `bson:"completed_by,omitempty" json:"completed_by,omitempty"`

	LocationRef `bson:",inline"`

	IsDeleted bool `bson:"is_deleted" json:"-"`
	Audit     `bson:",inline"`
}

// IsAssigned reports whether userID is among the task's assignees.
func (t Task) IsAssigned(userID primitive.ObjectID) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p int) bool {
	return p >= PriorityLow && p <= PriorityHigh
}
