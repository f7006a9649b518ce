package notes

import (
	"context"

	"notesync/cmd/server/handlers/handlerutil"
	"notesync/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NotesService defines the interface for notes service
type NotesService interface {
	Create(ctx context.Context, ownerID bson.ObjectID, req notes.CreateNoteRequest) (*notes.Note, error)
	List(ctx context.Context, ownerID bson.ObjectID) ([]*notes.Note, error)
	Get(ctx context.Context, ownerID, noteID bson.ObjectID) (*notes.Note, error)
	Update(ctx context.Context, ownerID, noteID bson.ObjectID, req notes.UpdateNoteRequest) (*notes.Note, error)
	Delete(ctx context.Context, ownerID, noteID bson.ObjectID) error
	Search(ctx context.Context, ownerID bson.ObjectID, q string) ([]*notes.Note, error)
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	notesService NotesService
	validator    *validator.Validate
}

// NewHandlers creates new notes handlers
func NewHandlers(notesService NotesService, validator *validator.Validate) *Handlers {
	return &Handlers{
		notesService: notesService,
		validator:    validator,
	}
}

// Create handles note creation
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req notes.CreateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	note, err := h.notesService.Create(c.Context(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Create", userID, nil, notes.ErrNoteNotFound)
	}

	return c.Status(201).JSON(notes.NoteResponse{Note: note})
}

// List returns every note of the signed-in user, most recently updated first
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	notesList, err := h.notesService.List(c.Context(), userID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "List", userID, nil, notes.ErrNoteNotFound)
	}

	return c.JSON(notes.ListNotesResponse{Notes: notesList})
}

// Search returns the user's notes whose title starts with the q parameter
func (h *Handlers) Search(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	notesList, err := h.notesService.Search(c.Context(), userID, c.Query("q"))
	if err != nil {
		return handlerutil.HandleServiceError(err, "Search", userID, nil, notes.ErrNoteNotFound)
	}

	return c.JSON(notes.ListNotesResponse{Notes: notesList})
}

// Get returns a single note by id
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractNoteID(c, userID, "Get", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	note, err := h.notesService.Get(c.Context(), userID, noteID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Get", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.JSON(notes.NoteResponse{Note: note})
}

// Update replaces a note's title, content and color
func (h *Handlers) Update(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractNoteID(c, userID, "Update", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	var req notes.UpdateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	note, err := h.notesService.Update(c.Context(), userID, noteID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Update", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.JSON(notes.NoteResponse{Note: note})
}

// Delete removes a note
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractNoteID(c, userID, "Delete", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	if err := h.notesService.Delete(c.Context(), userID, noteID); err != nil {
		return handlerutil.HandleServiceError(err, "Delete", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.SendStatus(204)
}
