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

type mongoUserRepo struct {
	col *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database, collection string) UserRepository {
	col := db.Collection(collection)
	// indexes
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reset_token_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return &mongoUserRepo{col: col}
}

func (r *mongoUserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.RefreshTokens == nil {
		u.RefreshTokens = []models.RefreshToken{}
	}
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) FindAll(ctx context.Context) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AppendRefreshToken uses a pipeline update so the expired-entry purge and the
// append land as one atomic document write.
func (r *mongoUserRepo) AppendRefreshToken(ctx context.Context, id primitive.ObjectID, rt models.RefreshToken, now time.Time) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"refresh_tokens": bson.M{
				"$concatArrays": bson.A{
					bson.M{"$filter": bson.M{
						"input": bson.M{"$ifNull": bson.A{"$refresh_tokens", bson.A{}}},
						"as":    "rt",
						"cond":  bson.M{"$gt": bson.A{"$$rt.expires_at", now}},
					}},
					bson.A{bson.M{
						"token":      rt.Token,
						"created_at": rt.CreatedAt,
						"expires_at": rt.ExpiresAt,
					}},
				},
			},
			"updated_at": now,
		}}},
	}
	res, err := r.col.UpdateByID(ctx, id, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoUserRepo) PullRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"refresh_tokens": bson.M{"token": token}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoUserRepo) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expiry time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"reset_token_hash":   hash,
			"reset_token_expiry": expiry,
			"updated_at":         time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearResetTokenIfMatch is conditional on the stored hash so a rollback after
// a failed email delivery never clobbers a newer reset request.
func (r *mongoUserRepo) ClearResetTokenIfMatch(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "reset_token_hash": hash},
		bson.M{"$unset": bson.M{"reset_token_hash": "", "reset_token_expiry": ""}},
	)
	return err
}

func (r *mongoUserRepo) ConsumeResetToken(ctx context.Context, hash string, now time.Time, newPasswordHash string) (*models.User, error) {
	var u models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{
			"reset_token_hash":   hash,
			"reset_token_expiry": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"password_hash": newPasswordHash, "updated_at": now},
			"$unset": bson.M{"reset_token_hash": "", "reset_token_expiry": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
