package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/iliyamo/identity-platform/internal/model"
)

// SeedCatalog ensures the fixed permission catalog and the reserved
// super-admin role exist. The catalog is immutable after seeding;
// FirstOrCreate keeps repeated runs (startup and broker-triggered
// migrations alike) idempotent.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	for _, resource := range model.PermissionResources {
		for _, verb := range model.PermissionVerbs {
			perm := model.Permission{
				Code:     model.PermissionCode(verb, resource),
				Resource: resource,
			}
			err := db.WithContext(ctx).
				Where("code = ?", perm.Code).
				FirstOrCreate(&perm).Error
			if err != nil {
				return fmt.Errorf("seed permission %s: %w", perm.Code, err)
			}
		}
	}

	super := model.Role{
		Name:        model.SuperAdminRoleName,
		Description: "reserved role for the seeded super-admin account",
	}
	err := db.WithContext(ctx).
		Where("name = ?", super.Name).
		FirstOrCreate(&super).Error
	if err != nil {
		return fmt.Errorf("seed super-admin role: %w", err)
	}
	return nil
}

// SeedTask dispatches a named seeding migration. Today the catalog is
// the only task; the broker consumer feeds unknown task names here so
// they fail loudly and the inbound message is rejected.
func SeedTask(ctx context.Context, db *gorm.DB, task string) error {
	switch task {
	case "catalog", "":
		return SeedCatalog(ctx, db)
	default:
		return fmt.Errorf("unknown seed task %q", task)
	}
}
