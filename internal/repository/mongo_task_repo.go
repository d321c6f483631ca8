package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/giordana79/TaskManager-API/internal/models"
)

type mongoTaskRepo struct {
	col *mongo.Collection
}

func NewMongoTaskRepo(db *mongo.Database, collection string) TaskRepository {
	col := db.Collection(collection)
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return &mongoTaskRepo{col: col}
}

func (r *mongoTaskRepo) Create(ctx context.Context, t *models.Task) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, t)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid
	}
	return nil
}

func (r *mongoTaskRepo) FindByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	return r.find(ctx, bson.M{"owner": owner})
}

func (r *mongoTaskRepo) FindAll(ctx context.Context) ([]models.Task, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoTaskRepo) find(ctx context.Context, filter bson.M) ([]models.Task, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
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

func (r *mongoTaskRepo) FindOwned(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error) {
	return r.findOne(ctx, bson.M{"_id": id, "owner": owner})
}

func (r *mongoTaskRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoTaskRepo) findOne(ctx context.Context, filter bson.M) (*models.Task, error) {
	var t models.Task
	err := r.col.FindOne(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *mongoTaskRepo) UpdateOwned(ctx context.Context, owner, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	return r.update(ctx, bson.M{"_id": id, "owner": owner}, patch)
}

func (r *mongoTaskRepo) Update(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	return r.update(ctx, bson.M{"_id": id}, patch)
}

func (r *mongoTaskRepo) update(ctx context.Context, filter bson.M, patch models.TaskPatch) (*models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}

	var t models.Task
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *mongoTaskRepo) DeleteOwned(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error) {
	return r.delete(ctx, bson.M{"_id": id, "owner": owner})
}

func (r *mongoTaskRepo) Delete(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	return r.delete(ctx, bson.M{"_id": id})
}

func (r *mongoTaskRepo) delete(ctx context.Context, filter bson.M) (*models.Task, error) {
	var t models.Task
	err := r.col.FindOneAndDelete(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *mongoTaskRepo) SetFileKey(ctx context.Context, id primitive.ObjectID, key string) (*models.Task, error) {
	return r.setFileKey(ctx, bson.M{"_id": id}, key)
}

func (r *mongoTaskRepo) SetFileKeyOwned(ctx context.Context, owner, id primitive.ObjectID, key string) (*models.Task, error) {
	return r.setFileKey(ctx, bson.M{"_id": id, "owner": owner}, key)
}

func (r *mongoTaskRepo) setFileKey(ctx context.Context, filter bson.M, key string) (*models.Task, error) {
	var t models.Task
	err := r.col.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"file_key": key, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
