package notes

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultColor is applied when a note is created without an explicit color.
const DefaultColor = "#FFFFFF"

// Note is a user-owned text memo.
//
// OwnerID is set at creation and never changes; a note is visible only to its
// owner and that rule is enforced here in the service layer, not in transports.
// UpdatedAt is bumped on every successful mutation and is always >= CreatedAt.
type Note struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	OwnerID   bson.ObjectID `bson:"owner_id" json:"owner_id" example:"683cdb8aa96ad71e8e075bd0"`
	Title     string        `bson:"title" json:"title" example:"Groceries"`
	Content   string        `bson:"content" json:"content" example:"Milk, eggs"`
	Color     string        `bson:"color" json:"color" example:"#FFEB3B"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at" example:"2025-06-01T23:00:26.005703677Z"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at" example:"2025-06-01T23:00:26.005703677Z"`
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"Milk, eggs"`
	Color   string `json:"color" validate:"omitempty,hexcolor" example:"#FFEB3B"`
}

// UpdateNoteRequest represents a note update request. Updates replace title,
// content and color wholesale; there is no field-level patching.
type UpdateNoteRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"Milk, eggs, bread"`
	Color   string `json:"color" validate:"omitempty,hexcolor" example:"#FFEB3B"`
}

// NoteResponse represents a single note response
type NoteResponse struct {
	Note *Note `json:"note"`
}

// ListNotesResponse represents a list of notes response
type ListNotesResponse struct {
	Notes []*Note `json:"notes"`
}
