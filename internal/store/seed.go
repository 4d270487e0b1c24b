package store

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"table-status-backend/internal/model"
	"table-status-backend/internal/parse"
)

// SeedIfEmpty creates tables mesa-1..mesa-n, available and with no order,
// when the collection has no documents. It returns how many it created.
func SeedIfEmpty(ctx context.Context, st Store, collection string, n int) (int, error) {
	existing, err := st.ReadAll(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("check existing tables: %w", err)
	}
	if len(existing) > 0 {
		log.WithField("tables", len(existing)).Debug("collection already populated, skipping seed")
		return 0, nil
	}

	for i := 1; i <= n; i++ {
		id := parse.TableID(i)
		if err := st.MergeWrite(ctx, collection, id, OrderFields(model.Order{}, model.StatusAvailable)); err != nil {
			return i - 1, fmt.Errorf("seed %s: %w", id, err)
		}
	}
	log.WithFields(log.Fields{"collection": collection, "tables": n}).Info("seeded tables")
	return n, nil
}
