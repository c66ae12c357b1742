package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	expenseserrors "lofshare/internal/expenses/errors"
	"lofshare/pkg/config"
	mongotx "lofshare/pkg/db/mongo"
	"lofshare/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ShareCollectionName = "Member_shares"
)

type ShareRepository interface {
	Create(ctx context.Context, share *model.MemberShare) error
	FindByID(ctx context.Context, id string) (*model.MemberShare, error)
	FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberShare, error)
	FindByPropertyEmailTag(ctx context.Context, propertyID, email, tagID string) (*model.MemberShare, error)
	Update(ctx context.Context, id string, share *model.MemberShare) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoShareRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoShareRepository(cfg *config.Config) ShareRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoShareRepository{
		cfg:        cfg,
		collection: db.Collection(ShareCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoShareRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoShareRepository) Create(ctx context.Context, share *model.MemberShare) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	share.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, share)
	if err != nil {
		return fmt.Errorf("failed to create member share: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		share.ID = oid.Hex()
	}
	return nil
}

func (r *mongoShareRepository) FindByID(ctx context.Context, id string) (*model.MemberShare, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", expenseserrors.ErrInvalidID, id)
	}

	var share model.MemberShare
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&share)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, expenseserrors.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to find member share: %w", err)
	}

	return &share, nil
}

func (r *mongoShareRepository) FindByProperty(ctx context.Context, propertyID string) ([]*model.MemberShare, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "member_email", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"property_id": propertyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find member shares: %w", err)
	}
	defer cursor.Close(ctx)

	var shares []*model.MemberShare
	if err = cursor.All(ctx, &shares); err != nil {
		return nil, fmt.Errorf("failed to decode member shares: %w", err)
	}

	return shares, nil
}

// FindByPropertyEmailTag looks up the single share for the exact
// (property, email, tag) triple. The email must already be lowercased by the
// caller; an empty tagID matches shares with no tag reference.
func (r *mongoShareRepository) FindByPropertyEmailTag(ctx context.Context, propertyID, email, tagID string) (*model.MemberShare, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"property_id":  propertyID,
		"member_email": email,
	}
	if tagID == "" {
		filter["tag_id"] = bson.M{"$in": bson.A{nil, ""}}
	} else {
		filter["tag_id"] = tagID
	}

	var share model.MemberShare
	err := r.collection.FindOne(ctx, filter).Decode(&share)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, expenseserrors.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to find member share: %w", err)
	}

	return &share, nil
}

func (r *mongoShareRepository) Update(ctx context.Context, id string, share *model.MemberShare) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", expenseserrors.ErrInvalidID, id)
	}

	// Full overwrite of the allocation fields: unset pointers clear the stored
	// values so the share's mode actually changes.
	update := bson.M{
		"$set": bson.M{
			"member_email": share.MemberEmail,
			"updated_at":   time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	set := update["$set"].(bson.M)
	unset := bson.M{}

	if share.TagID != "" {
		set["tag_id"] = share.TagID
	} else {
		unset["tag_id"] = ""
	}
	if share.SharePercentage != nil {
		set["share_percentage"] = *share.SharePercentage
	} else {
		unset["share_percentage"] = ""
	}
	if share.CustomAmount != nil {
		set["custom_amount"] = *share.CustomAmount
	} else {
		unset["custom_amount"] = ""
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update member share: %w", err)
	}
	if result.MatchedCount == 0 {
		return expenseserrors.ErrShareNotFound
	}
	return nil
}

func (r *mongoShareRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", expenseserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete member share: %w", err)
	}
	if result.DeletedCount == 0 {
		return expenseserrors.ErrShareNotFound
	}
	return nil
}

func (r *mongoShareRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
