package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

const batchConcurrency = 8

// CreateAll writes every document independently. It returns the ids of the
// documents that were written, indexed like docs ("" where the write failed),
// and the joined errors of the failed writes.
func CreateAll(ctx context.Context, store Store, collection string, docs []map[string]any) ([]string, error) {
	ids := make([]string, len(docs))
	var mu sync.Mutex
	var errs []error

	p := pool.New().WithMaxGoroutines(batchConcurrency)
	for i, data := range docs {
		p.Go(func() {
			id, err := store.Create(ctx, collection, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("create %s #%d: %w", collection, i, err))
				return
			}
			ids[i] = id
		})
	}
	p.Wait()

	return ids, errors.Join(errs...)
}

// DeleteAll deletes every id independently and returns the joined errors of the
// deletes that failed. Successful deletes are not undone.
func DeleteAll(ctx context.Context, store Store, collection string, ids []string) error {
	p := pool.New().WithErrors().WithMaxGoroutines(batchConcurrency)
	for _, id := range ids {
		p.Go(func() error {
			if err := store.Delete(ctx, collection, id); err != nil {
				return fmt.Errorf("delete %s/%s: %w", collection, id, err)
			}
			return nil
		})
	}
	return p.Wait()
}
