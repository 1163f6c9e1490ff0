package models

import (
	"context"
	"time"

	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

// CreditTransaction is a single row in the green-credit ledger.
//
// The ledger is append-only and is the sole source of truth for balances:
// - Rows are never updated or deleted; corrections are new manual_adjustment rows.
// - For any (reference_type, reference_id, type) tuple there is at most one
//   row. The unique index enforces this at the storage layer, independent of
//   the verification engine's conditional-update guard.
type CreditTransaction struct {
	ID            int             `gorm:"primary_key" json:"id"`
	UserId        int             `gorm:"index;not null;index:idx_ct_user_date,priority:1" json:"user_id"`
	Type          TransactionType `gorm:"size:30;not null;index:uniq_ct_ref,unique,priority:3" json:"type"`
	Amount        int             `gorm:"not null" json:"amount"`
	Description   string          `gorm:"size:255" json:"description"`
	ReferenceId   int             `gorm:"not null;index:uniq_ct_ref,unique,priority:2" json:"reference_id"`
	ReferenceType ReferenceType   `gorm:"size:4;not null;index:uniq_ct_ref,unique,priority:1" json:"reference_type"`
	ActorId       int             `gorm:"index;not null" json:"actor_id"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index:idx_ct_user_date,priority:2" json:"created_at"`
}

type CreditTransactionsConnection struct {
	Edges    []*CreditTransactionsEdge `json:"edges"`
	PageInfo *PageInfo                 `json:"pageInfo"`
}

type CreditTransactionsEdge struct {
	Cursor string             `json:"cursor"`
	Node   *CreditTransaction `json:"node"`
}

// AppendTransaction inserts one ledger row inside the caller's transaction.
// A duplicate (reference_type, reference_id, type) returns
// ErrorDuplicateReference; the caller decides whether that is the expected
// AlreadyFinalized path or a consistency alarm.
func AppendTransaction(tx *gorm.DB, record *CreditTransaction) (int, error) {
	if !record.ReferenceType.Valid() {
		return 0, utils.ErrorInvalidTransition
	}
	if err := tx.Create(record).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return 0, utils.ErrorDuplicateReference
		}
		return 0, err
	}
	return record.ID, nil
}

// SumTransactionsForUser replays the ledger for one user.
func SumTransactionsForUser(tx *gorm.DB, userId int) (int, error) {
	var total *int
	err := tx.Model(&CreditTransaction{}).
		Where("user_id = ?", userId).
		Select("SUM(amount)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// ListTransactionsForUser pages the user's ledger in reverse chronological
// order using a composite (created_at, id) cursor.
func ListTransactionsForUser(ctx context.Context, userId int, after *string, limit int) (*CreditTransactionsConnection, error) {
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}

	db := config.GetDB()
	query := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	cursorDate, cursorId := DecodeCompositeCursor(after)
	if cursorDate != "" {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursorDate, cursorDate, cursorId)
	}

	var records []*CreditTransaction
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	hasNext := len(records) > limit
	if hasNext {
		records = records[:limit]
	}

	edges := make([]*CreditTransactionsEdge, 0, len(records))
	for _, record := range records {
		edges = append(edges, &CreditTransactionsEdge{
			Cursor: EncodeCompositeCursor(record.CreatedAt.UTC().Format("2006-01-02 15:04:05.000000"), record.ID),
			Node:   record,
		})
	}

	pageInfo := &PageInfo{HasNextPage: &hasNext}
	if len(edges) > 0 {
		pageInfo.StartCursor = edges[0].Cursor
		pageInfo.EndCursor = edges[len(edges)-1].Cursor
	}

	return &CreditTransactionsConnection{Edges: edges, PageInfo: pageInfo}, nil
}

// ListTransactionsForStatement returns the full ledger for one user, oldest
// first, for the xlsx statement export.
func ListTransactionsForStatement(ctx context.Context, userId int) ([]*CreditTransaction, error) {
	db := config.GetDB()
	var records []*CreditTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, err
}
