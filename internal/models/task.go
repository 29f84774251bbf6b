package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task priorities and statuses as stored. The status set is flat: any
// transition between statuses is allowed.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"

	StatusTodo       = "To Do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// Task is a single task document stored in MongoDB. UserID is set once at
// creation and never changes; every store operation filters on it.
type Task struct {
	ID          primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	UserID      string             `json:"userId"      bson:"user_id"`
	Title       string             `json:"title"       bson:"title"`
	Description string             `json:"description" bson:"description"`
	Priority    string             `json:"priority"    bson:"priority"`
	Status      string             `json:"status"      bson:"status"`
	Deadline    *time.Time         `json:"deadline"    bson:"deadline,omitempty"`
	Tags        []string           `json:"tags"        bson:"tags"`
	FileURL     string             `json:"fileUrl"     bson:"file_url,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"   bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt"   bson:"updated_at"`
}

// CreateTaskRequest is the JSON body for POST /api/tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Deadline    *time.Time `json:"deadline"`
	Tags        []string   `json:"tags"`
	FileURL     string     `json:"fileUrl"`
}

// UpdateTaskRequest is the JSON body for PUT /api/tasks/{id}. Nil fields are
// left untouched; only supplied fields are written.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	Deadline    *time.Time `json:"deadline"`
	Tags        *[]string  `json:"tags"`
	FileURL     *string    `json:"fileUrl"`
}
