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

// WasteReport is a citizen-submitted report of dumped waste.
//
// PointsAwarded is a denormalized cache; the authoritative value lives in the
// credit ledger. It is set exactly once, on the pending -> verified
// transition, and never changes afterwards.
type WasteReport struct {
	ID          int             `gorm:"primary_key" json:"id"`
	OwnerId     int             `gorm:"index;not null" json:"owner_id"`
	Status      ReportStatus    `gorm:"type:enum('pending','verified','rejected');default:'pending';index" json:"status"`
	Category    WasteCategory   `gorm:"size:20;not null" json:"category"`
	WeightKg    decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"weight_kg"`
	Lat         float64         `gorm:"not null" json:"lat"`
	Lng         float64         `gorm:"not null" json:"lng"`
	Description string          `gorm:"type:text" json:"description"`
	ImageUrl    string          `gorm:"size:500" json:"image_url"`

	PointsAwarded int        `gorm:"not null;default:0" json:"points_awarded"`
	VerifiedBy    *int       `gorm:"index" json:"verified_by"`
	VerifiedAt    *time.Time `json:"verified_at"`
	VerifierNotes string     `gorm:"type:text" json:"verifier_notes"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWasteReport struct {
	Category    string          `json:"category" binding:"required"`
	WeightKg    decimal.Decimal `json:"weight_kg" binding:"required"`
	Lat         float64         `json:"lat" binding:"required"`
	Lng         float64         `json:"lng" binding:"required"`
	Description string          `json:"description"`
	ImageUrl    string          `json:"image_url"`
}

func CreateWasteReport(ctx context.Context, input *NewWasteReport) (*WasteReport, error) {

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

	report := WasteReport{
		OwnerId:     ownerId,
		Status:      ReportStatusPending,
		Category:    category,
		WeightKg:    input.WeightKg,
		Lat:         input.Lat,
		Lng:         input.Lng,
		Description: input.Description,
		ImageUrl:    input.ImageUrl,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func GetWasteReport(ctx context.Context, id int) (*WasteReport, error) {
	return utils.FetchModel[WasteReport](ctx, id)
}

func ListWasteReports(ctx context.Context, status *ReportStatus, limit int, offset int) ([]*WasteReport, error) {
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}
	db := config.GetDB()
	query := db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Offset(offset)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var reports []*WasteReport
	err := query.Find(&reports).Error
	return reports, err
}

// FinalizeWasteReport flips the report out of pending with a conditional
// write: the UPDATE only matches rows still in pending, so of two concurrent
// finalizations exactly one succeeds and the other sees AlreadyFinalized.
func FinalizeWasteReport(tx *gorm.DB, id int, status ReportStatus, points int, verifierId int, notes string) error {
	if !status.IsTerminal() {
		return utils.ErrorInvalidTransition
	}
	now := time.Now().UTC()
	result := tx.Model(&WasteReport{}).
		Where("id = ? AND status = ?", id, ReportStatusPending).
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
