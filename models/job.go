package models

import (
	"context"
	"errors"
	"time"

	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CollectionJob is a citizen-scheduled doorstep waste pickup. Unlike a
// WasteReport it carries an address instead of raw coordinates; assignment is
// manual, so verifying a job never triggers the matcher.
type CollectionJob struct {
	ID       int             `gorm:"primary_key" json:"id"`
	OwnerId  int             `gorm:"index;not null" json:"owner_id"`
	Status   JobStatus       `gorm:"type:enum('pending','verified','rejected');default:'pending';index" json:"status"`
	Category WasteCategory   `gorm:"size:20;not null" json:"category"`
	WeightKg decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"weight_kg"`
	Address  string          `gorm:"type:text;not null" json:"address"`

	PointsAwarded int        `gorm:"not null;default:0" json:"points_awarded"`
	VerifiedBy    *int       `gorm:"index" json:"verified_by"`
	VerifiedAt    *time.Time `json:"verified_at"`
	VerifierNotes string     `gorm:"type:text" json:"verifier_notes"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCollectionJob struct {
	Category string          `json:"category" binding:"required"`
	WeightKg decimal.Decimal `json:"weight_kg" binding:"required"`
	Address  string          `json:"address" binding:"required"`
}

func CreateCollectionJob(ctx context.Context, input *NewCollectionJob) (*CollectionJob, error) {

	ownerId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}

	category, err := ParseWasteCategory(input.Category)
	if err != nil {
		return nil, err
	}
	if input.WeightKg.IsNegative() || input.WeightKg.IsZero() {
		return nil, errors.New("weight must be positive")
	}

	job := CollectionJob{
		OwnerId:  ownerId,
		Status:   JobStatusPending,
		Category: category,
		WeightKg: input.WeightKg,
		Address:  input.Address,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func GetCollectionJob(ctx context.Context, id int) (*CollectionJob, error) {
	return utils.FetchModel[CollectionJob](ctx, id)
}

// FinalizeCollectionJob: conditional write, same guard as FinalizeWasteReport.
func FinalizeCollectionJob(tx *gorm.DB, id int, status JobStatus, points int, verifierId int, notes string) error {
	if !status.IsTerminal() {
		return utils.ErrorInvalidTransition
	}
	now := time.Now().UTC()
	result := tx.Model(&CollectionJob{}).
		Where("id = ? AND status = ?", id, JobStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"points_awarded": points,
			"verified_by":    verifierId,
			"verified_at":    now,
			"verifier_notes": notes,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorAlreadyFinalized
	}
	return nil
}
