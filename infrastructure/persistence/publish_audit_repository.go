package persistence

import (
	"context"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const auditCollection = "publish_attempts"

// PublishAuditRepository appends attempt records to MongoDB. A nil client
// turns every call into a no-op.
type PublishAuditRepository struct {
	mongoDb  *mongo.Client
	database string
}

var _ repository.IPublishAudit = (*PublishAuditRepository)(nil)

func NewPublishAuditRepository(client *mongo.Client, database string) *PublishAuditRepository {
	return &PublishAuditRepository{mongoDb: client, database: database}
}

// EnsureIndexes creates the lookup index used by ListAttempts.
func (r *PublishAuditRepository) EnsureIndexes(ctx context.Context) error {
	if r.mongoDb == nil {
		return nil
	}
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "attempted_at", Value: -1}},
	})
	return err
}

func (r *PublishAuditRepository) RecordAttempts(ctx context.Context, audits []model.PublishAttemptAudit) error {
	if r.mongoDb == nil || len(audits) == 0 {
		return nil
	}
	if _, err := r.collection().InsertMany(ctx, audits); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while writing publish audit")
		return err
	}
	return nil
}

func (r *PublishAuditRepository) ListAttempts(ctx context.Context, postID string, limit int64) ([]model.PublishAttemptAudit, error) {
	if r.mongoDb == nil {
		return []model.PublishAttemptAudit{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "attempted_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection().Find(ctx, bson.D{{Key: "post_id", Value: postID}}, opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	audits := []model.PublishAttemptAudit{}
	for cursor.Next(ctx) {
		var a model.PublishAttemptAudit
		if err := cursor.Decode(&a); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding")
			continue
		}
		audits = append(audits, a)
	}
	return audits, cursor.Err()
}

func (r *PublishAuditRepository) collection() *mongo.Collection {
	return r.mongoDb.Database(r.database).Collection(auditCollection)
}
