package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/service"
)

func TestBuildUpdate(t *testing.T) {
	ex := &core.Exception{Active: true, Reason: "vendor patch pending"}
	p := core.NewEntryPatch(core.GroupCIS, "1.1.1").
		SetEnforced(false).
		SetEnforcedKey(nil).
		SetException(ex)

	update := buildUpdate(p)
	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, false, set["Enforced.CIS.1.1.1.enforced"])
	assert.Equal(t, *ex, set["Enforced.CIS.1.1.1.exception"])

	unset, ok := update["$unset"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"Enforced.CIS.1.1.1.enforced_key": ""}, unset)
}

func TestBuildUpdate_Empty(t *testing.T) {
	assert.Empty(t, buildUpdate(core.NewEntryPatch("Agents", "falcon")))
}

func TestIDFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, bson.M{"_id": bson.M{"$in": bson.A{oid, oid.Hex()}}}, idFilter(oid.Hex()))
	assert.Equal(t, bson.M{"_id": "srv-01"}, idFilter("srv-01"))
}

func TestBuildFilter(t *testing.T) {
	q := buildFilter(service.SearchCriteria{Hostname: "web.01", Application: "billing"})
	assert.Equal(t, primitive.Regex{Pattern: `web\.01`, Options: "i"}, q["ESD.hostname"])
	assert.Equal(t, primitive.Regex{Pattern: "billing", Options: "i"}, q["ESD.instances.name"])
	assert.Len(t, q, 2)
	assert.Empty(t, buildFilter(service.SearchCriteria{}))
}

func TestInventoryRecordDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{
		"_id": oid,
		"ESD": bson.M{"hostname": "web01", "instance": bson.M{"name": "Billing"}},
		"Enforced": bson.M{
			"CIS": bson.M{
				"1.1": bson.M{
					"enforced":     false,
					"enforced_key": core.ManualExceptionKey,
					"exception": bson.M{
						"active":     true,
						"reason":     "r",
						"approver":   bson.M{"id": int32(7), "name": "Ada"},
						"expires_at": "2025-01-15T23:59:59+00:00",
					},
					"platforms": bson.A{"linux"},
				},
			},
		},
	})
	require.NoError(t, err)

	var rec inventoryRecord
	require.NoError(t, bson.Unmarshal(raw, &rec))
	doc := rec.document()

	assert.Equal(t, oid.Hex(), doc.ID)
	assert.Equal(t, "web01", doc.Descriptor.Hostname)
	assert.Equal(t, "Billing", doc.Application())
	e := doc.Entry("CIS", "1.1")
	require.NotNil(t, e.Exception)
	assert.True(t, e.HasActiveException())
	assert.Equal(t, int64(7), e.Exception.Approver.ID)
	assert.Equal(t, []string{"linux"}, e.Platforms)

	raw, err = bson.Marshal(bson.M{"_id": "srv-01"})
	require.NoError(t, err)
	rec = inventoryRecord{}
	require.NoError(t, bson.Unmarshal(raw, &rec))
	assert.Equal(t, "srv-01", rec.document().ID)
}
