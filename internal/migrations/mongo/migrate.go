package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lofshare/internal/migrations/mongo/validators"
)

const (
	DB_NAME = "lofshare"
)

var (
	PropertiesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "admins", Value: 1}}},
		{Keys: bson.D{{Key: "allowed_emails", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "property_id", Value: 1},
			{Key: "start_date", Value: 1},
			{Key: "end_date", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "property_id", Value: 1},
		}},
	}

	SharedExpensesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_id", Value: 1}}},
	}

	MemberTagsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_id", Value: 1}}},
	}

	// The unique triple index is the hard backstop behind the upsert: even if
	// two writers race past the advisory lock, the second insert fails.
	MemberSharesIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "property_id", Value: 1},
				{Key: "member_email", Value: 1},
				{Key: "tag_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	AdvisoryLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "is_read", Value: 1},
		}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client) error {
	db := client.Database(DB_NAME)
	fmt.Printf("Running Lofshare Mongo migrations on database: %s\n", DB_NAME)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Properties": {
			Indexes:   PropertiesIndexes,
			Validator: validators.PropertyValidator,
		},
		"Bookings": {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		"Shared_expenses": {
			Indexes:   SharedExpensesIndexes,
			Validator: validators.SharedExpenseValidator,
		},
		"Member_tags": {
			Indexes:   MemberTagsIndexes,
			Validator: validators.MemberTagValidator,
		},
		"Member_shares": {
			Indexes:   MemberSharesIndexes,
			Validator: validators.MemberShareValidator,
		},
		"Advisory_locks": {
			Indexes:   AdvisoryLocksIndexes,
			Validator: validators.AdvisoryLockValidator,
		},
		"Notifications": {
			Indexes:   NotificationsIndexes,
			Validator: validators.NotificationValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("Collection %s already exists, updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("Ensured indexes for %s\n", name)
	return nil
}
