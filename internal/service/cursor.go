package service

import (
	"context"
	"iter"

	"github.com/Veysel440/go-etracker/internal/core"
)

// IterateAll pages through every inventory document in batches of batchSize.
// The sequence stops at the first error, which is yielded once.
func IterateAll(ctx context.Context, repo InventoryRepo, batchSize int) iter.Seq2[core.InventoryDocument, error] {
	if batchSize < 1 {
		batchSize = 1
	}
	return func(yield func(core.InventoryDocument, error) bool) {
		var skip int64
		for {
			if err := ctx.Err(); err != nil {
				yield(core.InventoryDocument{}, err)
				return
			}
			res, err := repo.Search(ctx, SearchCriteria{}, int64(batchSize), skip)
			if err != nil {
				yield(core.InventoryDocument{}, err)
				return
			}
			if len(res.Items) == 0 {
				return
			}
			for _, d := range res.Items {
				if !yield(d, nil) {
					return
				}
			}
			skip += int64(batchSize)
			if skip >= res.Total {
				return
			}
		}
	}
}
