package models

import (
	"context"
	"errors"
	"time"

	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

// CleanupEvent is a champion-organized community cleanup. Participations are
// the creditable entities: a champion (or admin) verifies attendance and the
// participant earns event_participation points, one-shot per participation.
type CleanupEvent struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ChampionId  int       `gorm:"index;not null" json:"champion_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Lat         float64   `gorm:"not null" json:"lat"`
	Lng         float64   `gorm:"not null" json:"lng"`
	StartsAt    time.Time `gorm:"not null;index" json:"starts_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type EventParticipation struct {
	ID      int                 `gorm:"primary_key" json:"id"`
	EventId int                 `gorm:"index;not null;index:uniq_ep_event_user,unique,priority:1" json:"event_id"`
	UserId  int                 `gorm:"index;not null;index:uniq_ep_event_user,unique,priority:2" json:"user_id"`
	Status  ParticipationStatus `gorm:"type:enum('pending','verified','rejected');default:'pending';index" json:"status"`

	PointsAwarded int        `gorm:"not null;default:0" json:"points_awarded"`
	VerifiedBy    *int       `gorm:"index" json:"verified_by"`
	VerifiedAt    *time.Time `json:"verified_at"`
	VerifierNotes string     `gorm:"type:text" json:"verifier_notes"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCleanupEvent struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Lat         float64   `json:"lat" binding:"required"`
	Lng         float64   `json:"lng" binding:"required"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
}

func CreateCleanupEvent(ctx context.Context, input *NewCleanupEvent) (*CleanupEvent, error) {

	championId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}
	role, _ := utils.GetUserRoleFromContext(ctx)
	if UserRole(role) != RoleChampion && UserRole(role) != RoleAdmin {
		return nil, utils.ErrorUnauthorized
	}

	event := CleanupEvent{
		ChampionId:  championId,
		Title:       input.Title,
		Description: input.Description,
		Lat:         input.Lat,
		Lng:         input.Lng,
		StartsAt:    input.StartsAt,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func GetCleanupEvent(ctx context.Context, id int) (*CleanupEvent, error) {
	return utils.FetchModel[CleanupEvent](ctx, id)
}

// JoinCleanupEvent registers the calling user for an event. The unique
// (event_id, user_id) index makes double-joins a no-op error.
func JoinCleanupEvent(ctx context.Context, eventId int) (*EventParticipation, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}

	if _, err := GetCleanupEvent(ctx, eventId); err != nil {
		return nil, err
	}

	participation := EventParticipation{
		EventId: eventId,
		UserId:  userId,
		Status:  ParticipationStatusPending,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&participation).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, errors.New("already joined this event")
		}
		return nil, err
	}
	return &participation, nil
}

func GetEventParticipation(ctx context.Context, id int) (*EventParticipation, error) {
	return utils.FetchModel[EventParticipation](ctx, id)
}

// FinalizeEventParticipation: conditional write, same guard as the other
// entity finalizers.
func FinalizeEventParticipation(tx *gorm.DB, id int, status ParticipationStatus, points int, verifierId int, notes string) error {
	if !status.IsTerminal() {
		return utils.ErrorInvalidTransition
	}
	now := time.Now().UTC()
	result := tx.Model(&EventParticipation{}).
		Where("id = ? AND status = ?", id, ParticipationStatusPending).
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
