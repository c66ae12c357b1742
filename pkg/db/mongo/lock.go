package mongo

import (
	"context"
	"time"

	"lofshare/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const lockCollectionName = "Advisory_locks"

// LockRepository provides advisory locks over a shared collection. Acquire
// inserts a document keyed by the lock id; a duplicate-key error means
// another request holds the lock. A TTL index on expires_at reaps locks
// orphaned by a crash.
type LockRepository interface {
	Acquire(ctx context.Context, lockID string, ttl time.Duration) (*model.AdvisoryLock, error)
	Release(ctx context.Context, lockID string) error
}

type mongoLockRepository struct {
	collection *mongo.Collection
}

func NewLockRepository(client *mongo.Client, databaseName string) LockRepository {
	return &mongoLockRepository{
		collection: client.Database(databaseName).Collection(lockCollectionName),
	}
}

// Acquire returns the duplicate-key error unchanged so callers can map it to
// a conflict.
func (r *mongoLockRepository) Acquire(ctx context.Context, lockID string, ttl time.Duration) (*model.AdvisoryLock, error) {
	lock := &model.AdvisoryLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		return nil, err
	}

	return lock, nil
}

func (r *mongoLockRepository) Release(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
