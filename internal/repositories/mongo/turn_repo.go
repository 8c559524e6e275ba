package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MKA06/luron-voice/internal/models"
)

type TurnRepository interface {
	Insert(ctx context.Context, t *models.Turn) error
	ListByCall(ctx context.Context, callID string, limit int64) ([]models.Turn, error)
}

type turnRepo struct {
	col *mongo.Collection
}

func NewTurnRepo(db *mongo.Database) TurnRepository {
	return &turnRepo{col: db.Collection("call_turns")}
}

func (r *turnRepo) Insert(ctx context.Context, t *models.Turn) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *turnRepo) ListByCall(ctx context.Context, callID string, limit int64) ([]models.Turn, error) {
	if limit <= 0 {
		limit = 500
	}

	cur, err := r.col.Find(ctx,
		bson.M{"call_id": callID},
		options.Find().
			SetSort(bson.D{{Key: "seq", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Turn
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
