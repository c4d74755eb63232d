package mongo

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/service"
)

type InventoryRepo struct {
	col *mongo.Collection
}

func NewInventoryRepo(col *mongo.Collection) *InventoryRepo { return &InventoryRepo{col: col} }

// inventoryRecord decodes documents whose _id is either an ObjectId or a string.
type inventoryRecord struct {
	ID                     bson.RawValue `bson:"_id"`
	core.InventoryDocument `bson:",inline"`
}

func (r inventoryRecord) document() core.InventoryDocument {
	d := r.InventoryDocument
	switch r.ID.Type {
	case bsontype.ObjectID:
		d.ID = r.ID.ObjectID().Hex()
	case bsontype.String:
		d.ID = r.ID.StringValue()
	default:
		d.ID = r.ID.String()
	}
	return d
}

func (r *InventoryRepo) Search(ctx context.Context, c service.SearchCriteria, limit, skip int64) (service.SearchResult, error) {
	q := buildFilter(c)
	opts := options.Find().
		SetSort(bson.D{{Key: "ESD.hostname", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(max(1, limit)).
		SetSkip(max(0, skip))

	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return service.SearchResult{}, storageErr(err)
	}
	defer cur.Close(ctx)

	out := service.SearchResult{Items: []core.InventoryDocument{}}
	for cur.Next(ctx) {
		var rec inventoryRecord
		if err := cur.Decode(&rec); err != nil {
			return service.SearchResult{}, storageErr(err)
		}
		out.Items = append(out.Items, rec.document())
	}
	if err := cur.Err(); err != nil {
		return service.SearchResult{}, storageErr(err)
	}

	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return service.SearchResult{}, storageErr(err)
	}
	out.Total = total
	return out, nil
}

func (r *InventoryRepo) FindByID(ctx context.Context, id string) (core.InventoryDocument, error) {
	var rec inventoryRecord
	err := r.col.FindOne(ctx, idFilter(id)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.InventoryDocument{}, service.ErrNotFound
	}
	if err != nil {
		return core.InventoryDocument{}, storageErr(err)
	}
	return rec.document(), nil
}

func (r *InventoryRepo) UpdateEntry(ctx context.Context, id string, p *core.EntryPatch) (bool, error) {
	update := buildUpdate(p)
	if len(update) == 0 {
		return false, nil
	}
	res, err := r.col.UpdateOne(ctx, idFilter(id), update)
	if err != nil {
		return false, storageErr(err)
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func entryPath(p *core.EntryPatch, field string) string {
	return "Enforced." + p.Group + "." + p.ItemKey + "." + field
}

func buildUpdate(p *core.EntryPatch) bson.M {
	set := bson.M{}
	for f, v := range p.Set() {
		set[entryPath(p, f)] = v
	}
	unset := bson.M{}
	for _, f := range p.Unset() {
		unset[entryPath(p, f)] = ""
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// idFilter matches hex ids stored either as ObjectId or as plain strings.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func buildFilter(c service.SearchCriteria) bson.M {
	q := bson.M{}
	fields := []struct{ path, value string }{
		{"ESD.hostname", c.Hostname},
		{"ESD.instance.reference_code", c.ReferenceCode},
		{"ESD.instance.owned_by.name", c.OwnedBy},
		{"ESD.instance.managed_by.name", c.ManagedBy},
		{"ESD.instance.gvp.name", c.GVP},
		{"ESD.instances.name", c.Application},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		q[f.path] = primitive.Regex{Pattern: regexp.QuoteMeta(f.value), Options: "i"}
	}
	return q
}
