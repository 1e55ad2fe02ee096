package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
)

type SuggestionLogRepo interface {
	Insert(ctx context.Context, rec *models.SuggestionRecord) error
	ListByTicket(ctx context.Context, ticketID string, limit int64) ([]models.SuggestionRecord, error)
}

type suggestionLogRepo struct {
	col *mongo.Collection
}

func NewSuggestionLogRepo(db *mongo.Database) SuggestionLogRepo {
	return &suggestionLogRepo{col: db.Collection("suggestion_log")}
}

func (r *suggestionLogRepo) Insert(ctx context.Context, rec *models.SuggestionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

func (r *suggestionLogRepo) ListByTicket(ctx context.Context, ticketID string, limit int64) ([]models.SuggestionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"ticket_id": ticketID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SuggestionRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
