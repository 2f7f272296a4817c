package psql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lrt-predictor/internal/domain/entity"
)

type GormPredictionRepo struct {
	DB *gorm.DB
}

func NewGormPredictionRepo(db *gorm.DB) *GormPredictionRepo {
	return &GormPredictionRepo{DB: db}
}

// CreatePrediction inserts rec. A record whose id is already stored is left
// as is, so a redelivered event is a no-op.
func (r *GormPredictionRepo) CreatePrediction(ctx context.Context, rec *entity.PredictionRecord) error {
	if err := insertRecord(r.DB.WithContext(ctx), rec).Error; err != nil {
		return fmt.Errorf("create prediction record: %w", err)
	}
	return nil
}

func insertRecord(tx *gorm.DB, rec *entity.PredictionRecord) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(rec)
}
