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
	ExpenseCollectionName = "Shared_expenses"
)

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.SharedExpense) error
	FindByID(ctx context.Context, id string) (*model.SharedExpense, error)
	FindByProperty(ctx context.Context, propertyID string) ([]*model.SharedExpense, error)
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoExpenseRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoExpenseRepository(cfg *config.Config) ExpenseRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoExpenseRepository{
		cfg:        cfg,
		collection: db.Collection(ExpenseCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoExpenseRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoExpenseRepository) Create(ctx context.Context, expense *model.SharedExpense) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	expense.CreatedAt = now
	expense.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, expense)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		expense.ID = oid.Hex()
	}
	return nil
}

func (r *mongoExpenseRepository) FindByID(ctx context.Context, id string) (*model.SharedExpense, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", expenseserrors.ErrInvalidID, id)
	}

	var expense model.SharedExpense
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&expense)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, expenseserrors.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to find expense: %w", err)
	}

	return &expense, nil
}

func (r *mongoExpenseRepository) FindByProperty(ctx context.Context, propertyID string) ([]*model.SharedExpense, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"property_id": propertyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var expenses []*model.SharedExpense
	if err = cursor.All(ctx, &expenses); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}

	return expenses, nil
}

func (r *mongoExpenseRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", expenseserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if result.DeletedCount == 0 {
		return expenseserrors.ErrExpenseNotFound
	}
	return nil
}

func (r *mongoExpenseRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
