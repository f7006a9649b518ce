package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"notesync/internal/logger"
	"notesync/internal/services/auth"
)

// ResetTokensRepo manages password-reset token operations in MongoDB
type ResetTokensRepo struct {
	collection *mongo.Collection
}

// NewResetTokensRepo creates a new ResetTokensRepo instance
func NewResetTokensRepo(db *mongo.Database) *ResetTokensRepo {
	collection := db.Collection("password_reset_tokens")

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}

	ctx, cancel := context.WithTimeout(context.Background(), OpTimeout)
	defer cancel()

	// Ignore error if index already exists
	_, _ = collection.Indexes().CreateOne(ctx, indexModel)

	return &ResetTokensRepo{
		collection: collection,
	}
}

// Create creates a new password-reset token record
func (r *ResetTokensRepo) Create(ctx context.Context, userID bson.ObjectID, rawToken string, expiresAt time.Time) error {
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(rawToken), bcrypt.DefaultCost)
	if err != nil {
		logger.L().Error("failed to hash reset token", "error", err, "user_id", userID.Hex())
		return err
	}

	resetToken := auth.PasswordResetToken{
		UserID:    userID,
		TokenHash: string(tokenHash),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.collection.InsertOne(ctx, resetToken)
	if err != nil {
		logger.L().Error("failed to create reset token", "error", err, "user_id", userID.Hex())
		return err
	}

	return nil
}

// Consume marks a valid token as used and returns it. The mark is a guarded
// update on _id, so a token can only ever be consumed once.
func (r *ResetTokensRepo) Consume(ctx context.Context, rawToken string) (*auth.PasswordResetToken, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{
		"used_at":    bson.M{"$exists": false},
		"expires_at": bson.M{"$gt": now},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.L().Error("failed to query reset tokens", "error", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var token auth.PasswordResetToken
		if err := cursor.Decode(&token); err != nil {
			logger.L().Error("failed to decode reset token", "error", err)
			continue
		}

		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(rawToken)) != nil {
			continue
		}

		result, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": token.ID, "used_at": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"used_at": now}},
		)
		if err != nil {
			logger.L().Error("failed to mark reset token used", "error", err, "token_id", token.ID.Hex())
			return nil, err
		}
		if result.MatchedCount == 0 {
			// Lost the race against a concurrent consume.
			return nil, auth.ErrResetTokenInvalid
		}

		token.UsedAt = &now
		return &token, nil
	}

	if err := cursor.Err(); err != nil {
		logger.L().Error("cursor error while finding reset token", "error", err)
		return nil, err
	}

	return nil, auth.ErrResetTokenInvalid
}
