package mongo

import (
	"context"
	"errors"
	"time"

	"notesync/internal/services/auth"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersRepo implements the auth.UsersRepo interface for MongoDB
type UsersRepo struct {
	collection *mongo.Collection
}

// NewUsersRepo creates a new users repository
func NewUsersRepo(db *mongo.Database) *UsersRepo {
	collection := db.Collection("users")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"google_id": bson.M{"$exists": true}}),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), OpTimeout)
	defer cancel()

	// Ignore error if indexes already exist
	for _, indexModel := range indexes {
		_, _ = collection.Indexes().CreateOne(ctx, indexModel)
	}

	return &UsersRepo{
		collection: collection,
	}
}

// Create creates a new user in the database
func (r *UsersRepo) Create(ctx context.Context, user *auth.User) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrDuplicate
		}
		return err
	}

	return nil
}

// FindByID finds a user by id
func (r *UsersRepo) FindByID(ctx context.Context, id bson.ObjectID) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByEmail finds a user by email address
func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByGoogleID finds a user by their linked Google subject identifier
func (r *UsersRepo) FindByGoogleID(ctx context.Context, googleID string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"google_id": googleID})
}

func (r *UsersRepo) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var user auth.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// LinkGoogleID attaches a Google subject identifier to an existing account
func (r *UsersRepo) LinkGoogleID(ctx context.Context, userID bson.ObjectID, googleID string) error {
	return r.updateOne(ctx, userID, bson.M{"google_id": googleID})
}

// SetPassword replaces the user's password hash
func (r *UsersRepo) SetPassword(ctx context.Context, userID bson.ObjectID, passwordHash string) error {
	return r.updateOne(ctx, userID, bson.M{"password_hash": passwordHash})
}

func (r *UsersRepo) updateOne(ctx context.Context, userID bson.ObjectID, set bson.M) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	set["updated_at"] = time.Now().UTC()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}

	return nil
}
