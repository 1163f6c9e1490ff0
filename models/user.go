package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID       int       `gorm:"primary_key" json:"id"`
	Uuid     uuid.UUID `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	Name     string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Username string    `gorm:"size:100;uniqueIndex;not null" json:"username" binding:"required"`
	Email    string    `gorm:"size:100;index" json:"email"`
	Password string    `gorm:"size:100;not null" json:"-"`
	Phone    string    `gorm:"size:20" json:"phone"`
	Role     UserRole  `gorm:"type:enum('admin','champion','worker','citizen');default:'citizen';index" json:"role"`

	// Points is a read-through cache over the credit ledger. It is written
	// only inside the same transaction as a ledger append and must stay
	// reconcilable by replaying the ledger (see workflow.Reconcile).
	Points int `gorm:"not null;default:0" json:"points"`

	// Worker service area. Workers without coordinates are never assigned.
	ServiceLat      *float64 `json:"service_lat"`
	ServiceLng      *float64 `json:"service_lng"`
	ServiceRadiusKm *float64 `json:"service_radius_km"`

	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name            string   `json:"name" binding:"required"`
	Username        string   `json:"username" binding:"required"`
	Email           string   `json:"email"`
	Password        string   `json:"password" binding:"required,min=8"`
	Phone           string   `json:"phone"`
	Role            string   `json:"role"`
	ServiceLat      *float64 `json:"service_lat"`
	ServiceLng      *float64 `json:"service_lng"`
	ServiceRadiusKm *float64 `json:"service_radius_km"`
}

type AuthPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (input *NewUser) validate(ctx context.Context) error {
	if err := utils.ValidateUnique[User](ctx, "username", input.Username, 0); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	role := RoleCitizen
	if input.Role != "" {
		parsed, err := ParseUserRole(input.Role)
		if err != nil {
			return nil, err
		}
		// admin accounts are seeded, never self-registered
		if parsed == RoleAdmin {
			return nil, utils.ErrorUnauthorized
		}
		role = parsed
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Uuid:            uuid.New(),
		Name:            input.Name,
		Username:        input.Username,
		Email:           input.Email,
		Password:        string(hashed),
		Phone:           input.Phone,
		Role:            role,
		ServiceLat:      input.ServiceLat,
		ServiceLng:      input.ServiceLng,
		ServiceRadiusKm: input.ServiceRadiusKm,
		IsActive:        true,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func Login(ctx context.Context, username string, password string) (*AuthPayload, error) {

	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ? AND is_active = true", username).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.ErrorUnauthorized
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	return &AuthPayload{Token: token, User: &user}, nil
}

// GetUser reads through the redis entity cache. Point writes invalidate the
// cached row, so a hit is at worst one TTL behind for non-balance fields.
func GetUser(ctx context.Context, id int) (*User, error) {
	if cached, err := utils.RetrieveRedis[User](id); err == nil && cached != nil {
		return cached, nil
	}
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis[User](user, user.ID); err != nil {
		config.LogError(config.GetLogger(), "models", "GetUser", "cache user", user.ID, err)
	}
	return user, nil
}

// IncrementUserPoints bumps the cached balance inside the caller's
// transaction. delta may be negative (redemptions, downward adjustments).
func IncrementUserPoints(tx *gorm.DB, userId int, delta int) error {
	result := tx.Model(&User{}).
		Where("id = ?", userId).
		UpdateColumn("points", gorm.Expr("points + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	// drop the cached row so the next read sees the committed balance
	_ = utils.RemoveRedis[User](userId)
	return nil
}

// SetUserPoints overwrites the cached balance (reconciliation only).
func SetUserPoints(tx *gorm.DB, userId int, points int) error {
	err := tx.Model(&User{}).
		Where("id = ?", userId).
		UpdateColumn("points", points).Error
	if err != nil {
		return err
	}
	_ = utils.RemoveRedis[User](userId)
	return nil
}

// ListAssignableWorkers returns active workers that have service coordinates.
// Ordered by id so that "earliest registered" tie-breaking is deterministic.
func ListAssignableWorkers(tx *gorm.DB) ([]*User, error) {
	var workers []*User
	err := tx.
		Where("role = ? AND is_active = true", RoleWorker).
		Where("service_lat IS NOT NULL AND service_lng IS NOT NULL").
		Order("id ASC").
		Find(&workers).Error
	return workers, err
}
