package mongo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"notesync/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	client  *mongo.Client
	db      *mongo.Database
	initErr error
	mu      sync.Mutex
)

// Init dials MongoDB and caches the client and database handles.
// Subsequent calls return the handles from the first successful call.
func Init(ctx context.Context, cfg config.Config, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil && db != nil {
		return client, db, initErr
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(10 * time.Second).
		SetAppName("notesync")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cli, err := mongo.Connect(opts)
	if err != nil {
		log.Error("mongo connect failed", "err", err)
		return nil, nil, err
	}

	// A failed ping still caches the client so Shutdown can release it.
	pingErr := cli.Ping(ctx, readpref.Primary())
	if pingErr != nil {
		log.Error("mongo ping failed", "err", pingErr)
	}

	client = cli
	db = cli.Database(cfg.MongoDBName)
	initErr = pingErr

	if pingErr == nil {
		log.Info("connected to mongo", "db", cfg.MongoDBName)
	}

	return client, db, pingErr
}

// Client returns the cached MongoDB client, or nil before Init.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// DB returns the cached database handle, or nil before Init.
func DB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// Shutdown disconnects from MongoDB and clears the cached handles.
// Calling it again is a no-op.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := client.Disconnect(ctx)

	client = nil
	db = nil
	initErr = nil

	return err
}
