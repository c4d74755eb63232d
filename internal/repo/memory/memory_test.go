package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/service"
)

func TestInventoryRepo_UpdateEntry(t *testing.T) {
	repo := NewInventoryRepo(core.InventoryDocument{ID: "a"})
	ctx := context.Background()

	p := core.NewEntryPatch("CIS", "1_1").SetEnforced(false).SetEnforcedKey(core.StringPtr("hardware:vm"))
	modified, err := repo.UpdateEntry(ctx, "a", p)
	require.NoError(t, err)
	assert.True(t, modified)

	modified, err = repo.UpdateEntry(ctx, "a", p)
	require.NoError(t, err)
	assert.False(t, modified, "same values do not count as a modification")

	modified, err = repo.UpdateEntry(ctx, "missing", p)
	require.NoError(t, err)
	assert.False(t, modified)

	doc, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hardware:vm", doc.Entry("CIS", "1_1").Key())

	*doc.Entry("CIS", "1_1").EnforcedKey = "mutated"
	again, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hardware:vm", again.Entry("CIS", "1_1").Key(), "reads are copies")
}

func TestAuditRepo_History(t *testing.T) {
	repo := NewAuditRepo()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"x", "y", "x"} {
		require.NoError(t, repo.Append(ctx, core.AuditRecord{ID: key + string(rune('0'+i)), DocumentID: "a", ItemKey: key, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, repo.Append(ctx, core.AuditRecord{ID: "other", DocumentID: "b", ItemKey: "x", CreatedAt: base}))

	got, err := repo.History(ctx, service.HistoryFilter{DocumentID: "a", ItemKey: "x", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x2", got[0].ID)
	assert.Equal(t, "x0", got[1].ID)

	got, err = repo.History(ctx, service.HistoryFilter{DocumentID: "a", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"x2", "y1"}, []string{got[0].ID, got[1].ID})
	assert.Equal(t, 4, repo.Len())
}

func TestLoadInventoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "srv-1", "esd": {"hostname": "web01"}, "enforced": {"CIS": {"1_1": {"enforced": true}}}}
	]`), 0o600))

	repo, err := LoadInventoryFile(path)
	require.NoError(t, err)
	doc, err := repo.FindByID(context.Background(), "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "web01", doc.Descriptor.Hostname)
	assert.True(t, doc.Entry("CIS", "1_1").IsEnforced())

	_, err = LoadInventoryFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
