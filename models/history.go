package models

import (
	"encoding/json"
	"time"

	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

// History is the audit trail. Verification decisions (including rejections,
// which write nothing to the ledger) always leave a History row.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ActionType    string    `gorm:"size:20;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceId   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:10" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType ReferenceType,
	before interface{},
	after interface{},
	description string) error {

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		userId = 0
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	history := History{
		ActionType:    actionType,
		Before:        string(b),
		After:         string(a),
		Description:   description,
		ReferenceId:   referenceId,
		ReferenceType: string(referenceType),
		UserId:        userId,
		UserName:      userName,
	}

	return tx.Create(&history).Error
}
