package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notesync/internal/logger"
	"notesync/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// prefixUpperBound is the highest code point in Unicode's private use area.
// Appending it to a prefix gives an exclusive upper bound for a range scan
// that covers every title starting with that prefix.
const prefixUpperBound = ""

// NotesRepo implements the notes.Repository interface for MongoDB
type NotesRepo struct {
	collection *mongo.Collection
}

func repoCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return WithRepoTimeout(parent, OpTimeout)
}

// translateNotFound maps the driver ErrNoDocuments to the domain-level ErrNoteNotFound.
func translateNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoteNotFound
	}
	return err
}

// NewNotesRepo creates a new notes repository
func NewNotesRepo(parentCtx context.Context, db *mongo.Database) (*NotesRepo, error) {
	collection := db.Collection("notes")

	indexes := []mongo.IndexModel{
		// Index for the live list, updated_at descending
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "updated_at", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
		// Index for title prefix range scans
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "title", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("owner_title_asc_id_asc"),
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		_, err := collection.Indexes().CreateOne(ctx, indexModel)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "notes")
			} else {
				logger.L().Error("failed to create index", "collection", "notes", "error", err)
				return nil, fmt.Errorf("failed to create notes collection index: %w", err)
			}
		}
	}

	return &NotesRepo{
		collection: collection,
	}, nil
}

// Insert stores a new note.
func (r *NotesRepo) Insert(ctx context.Context, n *notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, n)
	return err
}

// Get fetches a note by id regardless of owner.
func (r *NotesRepo) Get(ctx context.Context, noteID bson.ObjectID) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var n notes.Note
	if err := r.collection.FindOne(ctx, bson.M{"_id": noteID}).Decode(&n); err != nil {
		return nil, translateNotFound(err)
	}
	return &n, nil
}

// ListByOwner returns all notes of one owner, most recently updated first.
func (r *NotesRepo) ListByOwner(ctx context.Context, ownerID bson.ObjectID) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	var notesList []*notes.Note
	if err := cursor.All(ctx, &notesList); err != nil {
		return nil, err
	}

	return notesList, nil
}

// Update replaces the mutable fields of the note matching both id and owner.
func (r *NotesRepo) Update(ctx context.Context, ownerID, noteID bson.ObjectID, title, content, color string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":      noteID,
		"owner_id": ownerID,
	}

	update := bson.M{
		"$set": bson.M{
			"title":      title,
			"content":    content,
			"color":      color,
			"updated_at": time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updatedNote notes.Note
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updatedNote); err != nil {
		return nil, translateNotFound(err)
	}

	return &updatedNote, nil
}

// Delete deletes a note belonging to the specified owner.
func (r *NotesRepo) Delete(ctx context.Context, ownerID, noteID bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":      noteID,
		"owner_id": ownerID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return notes.ErrNoteNotFound
	}

	return nil
}

// SearchByTitlePrefix returns the owner's notes whose title starts with
// prefix, title ascending. An empty prefix matches everything.
func (r *NotesRepo) SearchByTitlePrefix(ctx context.Context, ownerID bson.ObjectID, prefix string) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{"owner_id": ownerID}
	if prefix != "" {
		filter["title"] = bson.M{
			"$gte": prefix,
			"$lt":  prefix + prefixUpperBound,
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	var notesList []*notes.Note
	if err := cursor.All(ctx, &notesList); err != nil {
		return nil, err
	}

	return notesList, nil
}
