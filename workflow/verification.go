package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

// Verify moves a pending entity to a terminal state. On approval it posts,
// in one DB transaction: the conditional status flip, exactly one ledger
// row, the balance-cache increment, an audit row, a notification outbox row,
// and (for reports) the worker assignment. On rejection it flips status and
// writes the audit row only.
//
// Idempotency: the status flip is a conditional UPDATE pinned to 'pending'.
// Two concurrent Verify calls on the same entity get one success and one
// ErrorAlreadyFinalized, never two ledger rows. The ledger's unique
// (reference_type, reference_id, type) index backs this up at the storage
// layer; if it ever fires here the guard was bypassed and we alarm-log.
func (e *Engine) Verify(ctx context.Context, ref EntityRef, decision Decision, notes string) (*VerifyResult, error) {

	verifierId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}
	roleStr, _ := utils.GetUserRoleFromContext(ctx)
	role := models.UserRole(roleStr)

	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	switch ref.Kind {
	case models.RefReport:
		return e.verifyReport(ctx, ref, decision, notes, verifierId, role)
	case models.RefJob:
		return e.verifyJob(ctx, ref, decision, notes, verifierId, role)
	case models.RefMarketplace:
		return e.verifyMarketplaceItem(ctx, ref, decision, notes, verifierId, role)
	case models.RefParticipation:
		return e.verifyParticipation(ctx, ref, decision, notes, verifierId, role)
	case models.RefTask, models.RefAdjustment:
		return nil, fmt.Errorf("%s is not a verifiable entity kind", ref.Kind)
	}
	return nil, fmt.Errorf("unknown entity kind %q", ref.Kind)
}

func (e *Engine) verifyReport(ctx context.Context, ref EntityRef, decision Decision, notes string, verifierId int, role models.UserRole) (*VerifyResult, error) {

	if role != models.RoleAdmin {
		return nil, utils.ErrorUnauthorized
	}

	report, err := models.GetWasteReport(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if report.Status.IsTerminal() {
		return nil, utils.ErrorAlreadyFinalized
	}

	if decision == DecisionReject {
		result := &VerifyResult{Ref: ref, Status: string(models.ReportStatusRejected)}
		err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := models.FinalizeWasteReport(tx, report.ID, models.ReportStatusRejected, 0, verifierId, notes); err != nil {
				return err
			}
			return models.CreateHistory(tx, "*REJECT*", report.ID, models.RefReport, report.Status, models.ReportStatusRejected,
				fmt.Sprintf("Waste report #%d rejected.", report.ID))
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	amount := e.Policy.WeightPoints(report.Category, report.WeightKg)
	result := &VerifyResult{Ref: ref, Status: string(models.ReportStatusVerified), PointsAwarded: amount}

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.FinalizeWasteReport(tx, report.ID, models.ReportStatusVerified, amount, verifierId, notes); err != nil {
			return err
		}

		txId, err := e.appendCredit(tx, &models.CreditTransaction{
			UserId:        report.OwnerId,
			Type:          models.TxReportVerified,
			Amount:        amount,
			Description:   fmt.Sprintf("Waste report #%d verified (%s, %s kg)", report.ID, report.Category, report.WeightKg),
			ReferenceId:   report.ID,
			ReferenceType: models.RefReport,
			ActorId:       verifierId,
		})
		if err != nil {
			return err
		}
		result.TransactionId = txId

		if err := models.IncrementUserPoints(tx, report.OwnerId, amount); err != nil {
			return err
		}

		if err := models.CreateHistory(tx, "*VERIFY*", report.ID, models.RefReport, report.Status, models.ReportStatusVerified,
			fmt.Sprintf("Waste report #%d verified for %d pts.", report.ID, amount)); err != nil {
			return err
		}

		if err := models.EnqueueNotification(tx, "report_verified", report.OwnerId, report.ID, models.RefReport, map[string]interface{}{
			"report_id": report.ID,
			"points":    amount,
		}); err != nil {
			return err
		}

		// Assignment runs in the same transaction: a verified report with a
		// lost assignment would strand the pickup.
		tasks, err := e.assignWorkersTx(tx, report)
		if err != nil {
			return err
		}
		result.TasksCreated = tasks
		return nil
	})
	if err != nil {
		return nil, err
	}

	models.InvalidateLeaderboard()
	return result, nil
}

func (e *Engine) verifyJob(ctx context.Context, ref EntityRef, decision Decision, notes string, verifierId int, role models.UserRole) (*VerifyResult, error) {

	if role != models.RoleAdmin {
		return nil, utils.ErrorUnauthorized
	}

	job, err := models.GetCollectionJob(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, utils.ErrorAlreadyFinalized
	}

	if decision == DecisionReject {
		result := &VerifyResult{Ref: ref, Status: string(models.JobStatusRejected)}
		err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := models.FinalizeCollectionJob(tx, job.ID, models.JobStatusRejected, 0, verifierId, notes); err != nil {
				return err
			}
			return models.CreateHistory(tx, "*REJECT*", job.ID, models.RefJob, job.Status, models.JobStatusRejected,
				fmt.Sprintf("Collection job #%d rejected.", job.ID))
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	amount := e.Policy.JobPoints(job.Category, job.WeightKg)
	result := &VerifyResult{Ref: ref, Status: string(models.JobStatusVerified), PointsAwarded: amount}

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.FinalizeCollectionJob(tx, job.ID, models.JobStatusVerified, amount, verifierId, notes); err != nil {
			return err
		}

		txId, err := e.appendCredit(tx, &models.CreditTransaction{
			UserId:        job.OwnerId,
			Type:          models.TxJobVerified,
			Amount:        amount,
			Description:   fmt.Sprintf("Collection job #%d verified (%s, %s kg)", job.ID, job.Category, job.WeightKg),
			ReferenceId:   job.ID,
			ReferenceType: models.RefJob,
			ActorId:       verifierId,
		})
		if err != nil {
			return err
		}
		result.TransactionId = txId

		if err := models.IncrementUserPoints(tx, job.OwnerId, amount); err != nil {
			return err
		}

		if err := models.CreateHistory(tx, "*VERIFY*", job.ID, models.RefJob, job.Status, models.JobStatusVerified,
			fmt.Sprintf("Collection job #%d verified for %d pts.", job.ID, amount)); err != nil {
			return err
		}

		return models.EnqueueNotification(tx, "job_verified", job.OwnerId, job.ID, models.RefJob, map[string]interface{}{
			"job_id": job.ID,
			"points": amount,
		})
	})
	if err != nil {
		return nil, err
	}

	models.InvalidateLeaderboard()
	return result, nil
}

func (e *Engine) verifyMarketplaceItem(ctx context.Context, ref EntityRef, decision Decision, notes string, verifierId int, role models.UserRole) (*VerifyResult, error) {

	if role != models.RoleAdmin {
		return nil, utils.ErrorUnauthorized
	}

	item, err := models.GetMarketplaceItem(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ListingStatusPending {
		return nil, utils.ErrorAlreadyFinalized
	}

	if decision == DecisionReject {
		result := &VerifyResult{Ref: ref, Status: string(models.ListingStatusRejected)}
		err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := models.FinalizeMarketplaceItem(tx, item.ID, models.ListingStatusRejected, 0, verifierId, notes); err != nil {
				return err
			}
			return models.CreateHistory(tx, "*REJECT*", item.ID, models.RefMarketplace, item.Status, models.ListingStatusRejected,
				fmt.Sprintf("Listing #%d rejected.", item.ID))
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	amount := e.Policy.FlatPoints(models.TxMarketplaceApproved)
	result := &VerifyResult{Ref: ref, Status: string(models.ListingStatusApproved), PointsAwarded: amount}

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.FinalizeMarketplaceItem(tx, item.ID, models.ListingStatusApproved, amount, verifierId, notes); err != nil {
			return err
		}

		txId, err := e.appendCredit(tx, &models.CreditTransaction{
			UserId:        item.SellerId,
			Type:          models.TxMarketplaceApproved,
			Amount:        amount,
			Description:   fmt.Sprintf("Listing #%d approved (%s)", item.ID, item.Title),
			ReferenceId:   item.ID,
			ReferenceType: models.RefMarketplace,
			ActorId:       verifierId,
		})
		if err != nil {
			return err
		}
		result.TransactionId = txId

		if err := models.IncrementUserPoints(tx, item.SellerId, amount); err != nil {
			return err
		}

		if err := models.CreateHistory(tx, "*APPROVE*", item.ID, models.RefMarketplace, item.Status, models.ListingStatusApproved,
			fmt.Sprintf("Listing #%d approved for %d pts.", item.ID, amount)); err != nil {
			return err
		}

		return models.EnqueueNotification(tx, "marketplace_approved", item.SellerId, item.ID, models.RefMarketplace, map[string]interface{}{
			"item_id": item.ID,
			"points":  amount,
		})
	})
	if err != nil {
		return nil, err
	}

	models.InvalidateLeaderboard()
	return result, nil
}

func (e *Engine) verifyParticipation(ctx context.Context, ref EntityRef, decision Decision, notes string, verifierId int, role models.UserRole) (*VerifyResult, error) {

	participation, err := models.GetEventParticipation(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	// Champions verify attendance for their own events; admins for any.
	switch role {
	case models.RoleAdmin:
	case models.RoleChampion:
		event, err := models.GetCleanupEvent(ctx, participation.EventId)
		if err != nil {
			return nil, err
		}
		if event.ChampionId != verifierId {
			return nil, utils.ErrorUnauthorized
		}
	default:
		return nil, utils.ErrorUnauthorized
	}

	if participation.Status.IsTerminal() {
		return nil, utils.ErrorAlreadyFinalized
	}

	if decision == DecisionReject {
		result := &VerifyResult{Ref: ref, Status: string(models.ParticipationStatusRejected)}
		err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := models.FinalizeEventParticipation(tx, participation.ID, models.ParticipationStatusRejected, 0, verifierId, notes); err != nil {
				return err
			}
			return models.CreateHistory(tx, "*REJECT*", participation.ID, models.RefParticipation, participation.Status, models.ParticipationStatusRejected,
				fmt.Sprintf("Event participation #%d rejected.", participation.ID))
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	amount := e.Policy.FlatPoints(models.TxEventParticipation)
	result := &VerifyResult{Ref: ref, Status: string(models.ParticipationStatusVerified), PointsAwarded: amount}

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.FinalizeEventParticipation(tx, participation.ID, models.ParticipationStatusVerified, amount, verifierId, notes); err != nil {
			return err
		}

		txId, err := e.appendCredit(tx, &models.CreditTransaction{
			UserId:        participation.UserId,
			Type:          models.TxEventParticipation,
			Amount:        amount,
			Description:   fmt.Sprintf("Event participation #%d verified", participation.ID),
			ReferenceId:   participation.ID,
			ReferenceType: models.RefParticipation,
			ActorId:       verifierId,
		})
		if err != nil {
			return err
		}
		result.TransactionId = txId

		if err := models.IncrementUserPoints(tx, participation.UserId, amount); err != nil {
			return err
		}

		if err := models.CreateHistory(tx, "*VERIFY*", participation.ID, models.RefParticipation, participation.Status, models.ParticipationStatusVerified,
			fmt.Sprintf("Event participation #%d verified for %d pts.", participation.ID, amount)); err != nil {
			return err
		}

		return models.EnqueueNotification(tx, "event_participation", participation.UserId, participation.ID, models.RefParticipation, map[string]interface{}{
			"participation_id": participation.ID,
			"points":           amount,
		})
	})
	if err != nil {
		return nil, err
	}

	models.InvalidateLeaderboard()
	return result, nil
}

// appendCredit wraps models.AppendTransaction with the consistency alarm:
// a duplicate reference hitting the unique index here means the conditional
// status update let a second posting through, which is a bug upstream.
func (e *Engine) appendCredit(tx *gorm.DB, record *models.CreditTransaction) (int, error) {
	if correlationId, ok := utils.GetCorrelationIdFromContext(tx.Statement.Context); ok {
		record.CorrelationId = correlationId
	}
	txId, err := models.AppendTransaction(tx, record)
	if err != nil {
		if errors.Is(err, utils.ErrorDuplicateReference) {
			config.LogError(e.Logger, "workflow", "appendCredit",
				"CONSISTENCY ALARM: duplicate ledger reference past status guard", record, err)
		}
		return 0, err
	}
	return txId, nil
}

// ManualAdjustment posts a correction row. The ledger is never edited;
// fixes are new manual_adjustment rows keyed by a caller-supplied
// adjustment key so a retried request cannot double-post.
func (e *Engine) ManualAdjustment(ctx context.Context, userId int, amount int, adjustmentKey int, description string) (int, error) {

	actorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return 0, utils.ErrorUnauthorized
	}
	role, _ := utils.GetUserRoleFromContext(ctx)
	if models.UserRole(role) != models.RoleAdmin {
		return 0, utils.ErrorUnauthorized
	}
	if amount == 0 {
		return 0, fmt.Errorf("adjustment amount must be non-zero")
	}
	if adjustmentKey <= 0 {
		return 0, fmt.Errorf("adjustment key must be positive")
	}

	if _, err := models.GetUser(ctx, userId); err != nil {
		return 0, err
	}

	var txId int
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txId, err = models.AppendTransaction(tx, &models.CreditTransaction{
			UserId:        userId,
			Type:          models.TxManualAdjustment,
			Amount:        amount,
			Description:   description,
			ReferenceId:   adjustmentKey,
			ReferenceType: models.RefAdjustment,
			ActorId:       actorId,
		})
		if err != nil {
			return err
		}

		if err := models.IncrementUserPoints(tx, userId, amount); err != nil {
			return err
		}

		return models.CreateHistory(tx, "*ADJUST*", adjustmentKey, models.RefAdjustment, nil, amount,
			fmt.Sprintf("Manual adjustment of %d pts for user #%d: %s", amount, userId, description))
	})
	if err != nil {
		return 0, err
	}

	models.InvalidateLeaderboard()
	return txId, nil
}
