package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

// newTestDB opens a per-test in-memory sqlite database. The shared-cache DSN
// keeps gorm's pooled connections on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func createUser(t *testing.T, gormDB *gorm.DB, username string, role policy.Role) *db.User {
	t.Helper()

	user := db.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Active:   true,
	}
	require.NoError(t, gormDB.Create(&user).Error)
	return &user
}

func createTitle(t *testing.T, gormDB *gorm.DB, name string, year int) *db.Title {
	t.Helper()

	title := db.Title{Name: name, Year: year}
	require.NoError(t, gormDB.Create(&title).Error)
	return &title
}
