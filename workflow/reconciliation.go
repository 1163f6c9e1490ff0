package workflow

import (
	"context"
	"errors"

	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReconcileResult compares a user's cached points against the ledger sum.
type ReconcileResult struct {
	UserId        int  `json:"user_id"`
	CachedBalance int  `json:"cached_balance"`
	LedgerBalance int  `json:"ledger_balance"`
	Drifted       bool `json:"drifted"`
	Repaired      bool `json:"repaired"`
}

// Reconcile recomputes a user's balance from the ledger and, when the cached
// points column has drifted, overwrites the cache with the ledger value. The
// ledger is the source of truth; the cache is only ever written, never read,
// by reconciliation.
//
// The user row is read FOR UPDATE inside the transaction so a concurrent
// posting's cache increment serializes against the overwrite; a snapshot read
// here could clobber an increment that committed mid-reconcile.
func (e *Engine) Reconcile(ctx context.Context, userId int) (*ReconcileResult, error) {

	result := &ReconcileResult{UserId: userId}

	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		result.CachedBalance = user.Points

		ledger, err := models.SumTransactionsForUser(tx, userId)
		if err != nil {
			return err
		}
		result.LedgerBalance = ledger
		if ledger == user.Points {
			return nil
		}
		result.Drifted = true
		if err := models.SetUserPoints(tx, userId, ledger); err != nil {
			return err
		}
		result.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Drifted {
		config.LogError(e.Logger, "workflow", "Reconcile",
			"balance cache drift repaired", result, nil)
		models.InvalidateLeaderboard()
	}
	return result, nil
}

// ReconcileAll sweeps every user. Meant for the nightly job
// (cmd/reconcile-balances); per-user failures are logged and skipped so one
// bad row does not abort the sweep.
func (e *Engine) ReconcileAll(ctx context.Context) ([]*ReconcileResult, error) {

	var userIds []int
	if err := e.DB.WithContext(ctx).Model(&models.User{}).Order("id ASC").Pluck("id", &userIds).Error; err != nil {
		return nil, err
	}

	var drifted []*ReconcileResult
	for _, userId := range userIds {
		result, err := e.Reconcile(ctx, userId)
		if err != nil {
			config.LogError(e.Logger, "workflow", "ReconcileAll", "reconcile failed", userId, err)
			continue
		}
		if result.Drifted {
			drifted = append(drifted, result)
		}
	}
	return drifted, nil
}
