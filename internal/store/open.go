package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/config"
)

// Open connects the backend named by cfg. The postgres backend is migrated
// before it is returned.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (DocumentStore, error) {
	switch cfg.Backend {
	case "postgres":
		pg, err := NewPostgres(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case "firestore":
		return NewFirestore(ctx, cfg.FirestoreProjectID, cfg.FirebaseCredentials, log)
	case "memory":
		log.Warn("using in-memory document store; data is lost on restart")
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
