package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kasuganosora/voxelpilot/cache"
	dbsqlite "github.com/kasuganosora/voxelpilot/db/sqlite"
	"github.com/kasuganosora/voxelpilot/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates a private in-memory SQLite database and runs
// AutoMigrate. Each call gets its own database, so parallel tests do not
// see each other's rows.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := dbsqlite.Open(dsn)
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SetupTestCache creates a local Store and PubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Store, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → local
	s, err := cache.NewStore(cfg)
	require.NoError(t, err, "SetupTestCache: NewStore")
	t.Cleanup(func() { _ = s.Close() })
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return s, ps
}
