package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/service"
)

type AuditRepo struct {
	col *mongo.Collection
}

func NewAuditRepo(col *mongo.Collection) *AuditRepo { return &AuditRepo{col: col} }

func (r *AuditRepo) Append(ctx context.Context, rec core.AuditRecord) error {
	_, err := r.col.InsertOne(ctx, rec)
	return storageErr(err)
}

func (r *AuditRepo) History(ctx context.Context, f service.HistoryFilter) ([]core.AuditRecord, error) {
	q := bson.M{"document_id": f.DocumentID}
	if f.ItemKey != "" {
		q["item_key"] = f.ItemKey
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(f.Limit)

	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)

	list := []core.AuditRecord{}
	for cur.Next(ctx) {
		var a core.AuditRecord
		if err := cur.Decode(&a); err != nil {
			return nil, storageErr(err)
		}
		list = append(list, a)
	}
	return list, storageErr(cur.Err())
}
