package models

import (
	"encoding/json"
	"time"

	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

type NotificationStatus string

const (
	NotificationStatusPending    NotificationStatus = "PENDING"
	NotificationStatusProcessing NotificationStatus = "PROCESSING"
	NotificationStatusSent       NotificationStatus = "SENT"
	NotificationStatusFailed     NotificationStatus = "FAILED"
	NotificationStatusDead       NotificationStatus = "DEAD"
)

// NotificationRecord is the transactional outbox for user notifications.
// Rows are written inside the same DB transaction as the ledger append, then
// published after commit by the background dispatcher. A publish failure
// never rolls back the posting that produced the row.
type NotificationRecord struct {
	ID            int                `gorm:"primary_key;index:idx_no_dispatch,priority:3" json:"id"`
	Kind          string             `gorm:"size:50;not null" json:"kind"`
	UserId        int                `gorm:"index;not null" json:"user_id"`
	ReferenceId   int                `json:"reference_id"`
	ReferenceType ReferenceType      `gorm:"size:4" json:"reference_type"`
	Payload       []byte             `gorm:"type:blob" json:"payload"`
	Status        NotificationStatus `gorm:"size:20;not null;default:'PENDING';index:idx_no_dispatch,priority:1" json:"status"`

	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_no_dispatch,priority:2" json:"next_attempt_at"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// EnqueueNotification writes an outbox row inside the caller's transaction.
func EnqueueNotification(tx *gorm.DB, kind string, userId int, referenceId int, referenceType ReferenceType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)

	record := NotificationRecord{
		Kind:          kind,
		UserId:        userId,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
		Payload:       data,
		Status:        NotificationStatusPending,
		CorrelationId: correlationId,
	}
	return tx.Create(&record).Error
}
