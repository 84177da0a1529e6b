package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/identity-platform/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "seed.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestSeedCatalogIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, SeedCatalog(ctx, db))
	var first int64
	require.NoError(t, db.Model(&model.Permission{}).Count(&first).Error)
	expected := int64(len(model.PermissionVerbs) * len(model.PermissionResources))
	assert.Equal(t, expected, first)

	// A second run changes nothing.
	require.NoError(t, SeedCatalog(ctx, db))
	var second int64
	require.NoError(t, db.Model(&model.Permission{}).Count(&second).Error)
	assert.Equal(t, first, second)

	var super model.Role
	require.NoError(t, db.Where("name = ?", model.SuperAdminRoleName).First(&super).Error)
}

func TestSeedTaskRejectsUnknownTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, SeedTask(ctx, db, "catalog"))
	require.NoError(t, SeedTask(ctx, db, ""))
	assert.Error(t, SeedTask(ctx, db, "bogus"))
}

func TestSeededCodesFollowConvention(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, SeedCatalog(context.Background(), db))

	var perms []model.Permission
	require.NoError(t, db.Find(&perms).Error)
	for _, p := range perms {
		assert.Equal(t, p.Resource, model.ResourceOf(p.Code), p.Code)
	}
}
