package settings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var ErrSettingNotFound = errors.New("setting not found")

// Repository reads and writes key/value settings.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the raw JSON stored under key.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	var row models.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load setting %q: %w", key, err)
	}
	return row.Value, nil
}

// Put inserts or replaces the JSON stored under key.
func (r *Repository) Put(ctx context.Context, key, value string) error {
	row := models.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
