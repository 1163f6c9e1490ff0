package utils

import (
	"context"

	"github.com/greenloop-dev/greenloop_backend/config"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch all models matching a condition
func FetchModelsWhere[T any](ctx context.Context, cond string, args ...interface{}) ([]*T, error) {

	db := config.GetDB()
	var results []*T
	err := db.WithContext(ctx).Where(cond, args...).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// count models matching a condition
func ModelCountWhere[T any](ctx context.Context, cond string, args ...interface{}) (int64, error) {

	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).Where(cond, args...).Count(&count).Error
	return count, err
}
