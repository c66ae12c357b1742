package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	expenseserrors "lofshare/internal/expenses/errors"
	"lofshare/pkg/config"
	"lofshare/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TagCollectionName = "Member_tags"
)

type TagRepository interface {
	Create(ctx context.Context, tag *model.MemberTag) error
	FindByID(ctx context.Context, id string) (*model.MemberTag, error)
	FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberTag, error)
	Delete(ctx context.Context, id string) error
}

type mongoTagRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTagRepository(cfg *config.Config) TagRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTagRepository{
		cfg:        cfg,
		collection: db.Collection(TagCollectionName),
	}
}

func (r *mongoTagRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoTagRepository) Create(ctx context.Context, tag *model.MemberTag) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, tag)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		tag.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTagRepository) FindByID(ctx context.Context, id string) (*model.MemberTag, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", expenseserrors.ErrInvalidID, id)
	}

	var tag model.MemberTag
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&tag)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, expenseserrors.ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}

	return &tag, nil
}

func (r *mongoTagRepository) FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberTag, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"property_id": propertyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []*model.MemberTag
	if err = cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	return tags, nil
}

// Delete removes the tag only. Shares referencing it are left in place and
// simply stop allocating anything until re-pointed or removed.
func (r *mongoTagRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", expenseserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if result.DeletedCount == 0 {
		return expenseserrors.ErrTagNotFound
	}
	return nil
}
