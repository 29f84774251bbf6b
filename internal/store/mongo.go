package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/endritk/taskboard/internal/models"
)

// ErrTaskNotFound is returned when no task matches an owner-scoped lookup.
// A task owned by someone else is indistinguishable from one that does not
// exist: the filter always carries both _id and user_id.
var ErrTaskNotFound = errors.New("task not found")

// MongoStore handles task CRUD in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("tasks")}
}

// Insert stores a new task and returns it with its generated id.
func (s *MongoStore) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	res, err := s.col.InsertOne(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("mongo insert: %w", err)
	}
	task.ID = res.InsertedID.(primitive.ObjectID)
	return task, nil
}

// ListByOwner returns all tasks owned by userID, newest first.
func (s *MongoStore) ListByOwner(ctx context.Context, userID string) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateByOwner applies the given field updates to the task matching both id
// and owner, bumps updated_at, and returns the new document.
func (s *MongoStore) UpdateByOwner(ctx context.Context, userID, id string, fields bson.M) (*models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	fields["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var task models.Task
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": fields},
		opts,
	).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo update: %w", err)
	}
	return &task, nil
}

// DeleteByOwner removes the task matching both id and owner.
func (s *MongoStore) DeleteByOwner(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrTaskNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}
