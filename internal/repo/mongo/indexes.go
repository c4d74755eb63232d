package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes prepares the audit collection. Inventory documents are owned
// by the loader and are left as they are.
func ensureIndexes(ctx context.Context, c *mongo.Collection, retentionDays int64) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("document_created"),
		},
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "item_key", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("document_item_created"),
		},
	}
	if retentionDays > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("created_ttl").SetExpireAfterSeconds(int32(retentionDays * 86400)),
		})
	}
	_, err := c.Indexes().CreateMany(ctx, models)
	return err
}
