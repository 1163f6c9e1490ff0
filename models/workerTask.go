package models

import (
	"context"
	"time"

	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

// WorkerTask is the pickup assignment spawned when a report is verified. Its
// lifecycle is independent of the report's status field but causally
// downstream of it: a task cannot exist before its report is verified.
//
// Uniqueness: one task per (report, worker). In nearest-assignment mode this
// collapses to one task per report.
type WorkerTask struct {
	ID         int        `gorm:"primary_key" json:"id"`
	ReportId   int        `gorm:"not null;index:uniq_wt_report_worker,unique,priority:1" json:"report_id"`
	WorkerId   int        `gorm:"not null;index;index:uniq_wt_report_worker,unique,priority:2" json:"worker_id"`
	Status     TaskStatus `gorm:"type:enum('assigned','in_progress','completed');default:'assigned';index" json:"status"`
	DistanceKm float64    `gorm:"not null;default:0" json:"distance_km"`

	AssignedAt  time.Time  `gorm:"not null" json:"assigned_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetWorkerTask(ctx context.Context, id int) (*WorkerTask, error) {
	return utils.FetchModel[WorkerTask](ctx, id)
}

func ListWorkerTasks(ctx context.Context, workerId int) ([]*WorkerTask, error) {
	return utils.FetchModelsWhere[WorkerTask](ctx, "worker_id = ?", workerId)
}

// TransitionWorkerTask performs one conditional state-machine step. The
// WHERE clause pins the expected current status, so concurrent transitions
// on the same task resolve to one winner.
//
// Legality of (current -> next) is the caller's job (TaskStatus.CanTransitionTo);
// this helper only guarantees atomicity of the step itself.
func TransitionWorkerTask(tx *gorm.DB, id int, from TaskStatus, to TaskStatus) error {
	updates := map[string]interface{}{"status": to}
	now := time.Now().UTC()
	switch to {
	case TaskStatusInProgress:
		updates["started_at"] = now
	case TaskStatusCompleted:
		updates["completed_at"] = now
	case TaskStatusAssigned:
		return utils.ErrorInvalidTransition
	}

	result := tx.Model(&WorkerTask{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorAlreadyFinalized
	}
	return nil
}
