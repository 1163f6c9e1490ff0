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

// MarketplaceItem is a recycled/upcycled listing. Approval by an admin is the
// positive terminal transition for crediting purposes (marketplace_approved);
// the later approved -> sold move is a plain lifecycle step with no credit.
type MarketplaceItem struct {
	ID       int             `gorm:"primary_key" json:"id"`
	SellerId int             `gorm:"index;not null" json:"seller_id"`
	Status   ListingStatus   `gorm:"type:enum('pending','approved','rejected','sold');default:'pending';index" json:"status"`
	Title    string          `gorm:"size:200;not null" json:"title"`
	Category WasteCategory   `gorm:"size:20;not null" json:"category"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ImageUrl string          `gorm:"size:500" json:"image_url"`

	PointsAwarded int        `gorm:"not null;default:0" json:"points_awarded"`
	VerifiedBy    *int       `gorm:"index" json:"verified_by"`
	VerifiedAt    *time.Time `json:"verified_at"`
	VerifierNotes string     `gorm:"type:text" json:"verifier_notes"`
	SoldAt        *time.Time `json:"sold_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMarketplaceItem struct {
	Title    string          `json:"title" binding:"required"`
	Category string          `json:"category" binding:"required"`
	Price    decimal.Decimal `json:"price" binding:"required"`
	ImageUrl string          `json:"image_url"`
}

func CreateMarketplaceItem(ctx context.Context, input *NewMarketplaceItem) (*MarketplaceItem, error) {

	sellerId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}

	category, err := ParseWasteCategory(input.Category)
	if err != nil {
		return nil, err
	}
	if input.Price.IsNegative() {
		return nil, errors.New("price must not be negative")
	}

	item := MarketplaceItem{
		SellerId: sellerId,
		Status:   ListingStatusPending,
		Title:    input.Title,
		Category: category,
		Price:    input.Price,
		ImageUrl: input.ImageUrl,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetMarketplaceItem(ctx context.Context, id int) (*MarketplaceItem, error) {
	return utils.FetchModel[MarketplaceItem](ctx, id)
}

// FinalizeMarketplaceItem moves pending -> approved|rejected conditionally.
func FinalizeMarketplaceItem(tx *gorm.DB, id int, status ListingStatus, points int, verifierId int, notes string) error {
	if status != ListingStatusApproved && status != ListingStatusRejected {
		return utils.ErrorInvalidTransition
	}
	now := time.Now().UTC()
	result := tx.Model(&MarketplaceItem{}).
		Where("id = ? AND status = ?", id, ListingStatusPending).
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

// MarkMarketplaceItemSold moves approved -> sold. Seller-only, no credit.
func MarkMarketplaceItemSold(ctx context.Context, id int) (*MarketplaceItem, error) {

	actorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}

	item, err := GetMarketplaceItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.SellerId != actorId {
		return nil, utils.ErrorUnauthorized
	}

	db := config.GetDB()
	now := time.Now().UTC()
	result := db.WithContext(ctx).Model(&MarketplaceItem{}).
		Where("id = ? AND status = ?", id, ListingStatusApproved).
		Updates(map[string]interface{}{"status": ListingStatusSold, "sold_at": now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// not approved yet, or already sold/rejected
		switch item.Status {
		case ListingStatusPending:
			return nil, utils.ErrorInvalidTransition
		default:
			return nil, utils.ErrorAlreadyFinalized
		}
	}

	item.Status = ListingStatusSold
	item.SoldAt = &now
	return item, nil
}
