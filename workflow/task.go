package workflow

import (
	"context"
	"fmt"

	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

// StartTask moves the caller's task from assigned to in_progress.
func (e *Engine) StartTask(ctx context.Context, taskId int) (*models.WorkerTask, error) {
	return e.transitionTask(ctx, taskId, models.TaskStatusInProgress)
}

// CompleteTask moves the caller's task from in_progress to completed and
// credits the worker the flat task_completed amount, once per task.
func (e *Engine) CompleteTask(ctx context.Context, taskId int) (*models.WorkerTask, error) {
	return e.transitionTask(ctx, taskId, models.TaskStatusCompleted)
}

func (e *Engine) transitionTask(ctx context.Context, taskId int, to models.TaskStatus) (*models.WorkerTask, error) {

	actorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}

	task, err := models.GetWorkerTask(ctx, taskId)
	if err != nil {
		return nil, err
	}
	// Only the assigned worker moves a task. Stuck tasks are an ops problem
	// (reassign via a new task), not an impersonation path.
	if task.WorkerId != actorId {
		return nil, utils.ErrorUnauthorized
	}
	if !task.Status.CanTransitionTo(to) {
		if task.Status == models.TaskStatusCompleted {
			return nil, utils.ErrorAlreadyFinalized
		}
		return nil, utils.ErrorInvalidTransition
	}

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.TransitionWorkerTask(tx, task.ID, task.Status, to); err != nil {
			return err
		}

		if err := models.CreateHistory(tx, "*TASK*", task.ID, models.RefTask, task.Status, to,
			fmt.Sprintf("Task #%d moved %s -> %s.", task.ID, task.Status, to)); err != nil {
			return err
		}

		if to != models.TaskStatusCompleted {
			return nil
		}

		amount := e.Policy.FlatPoints(models.TxTaskCompleted)
		_, err := e.appendCredit(tx, &models.CreditTransaction{
			UserId:        task.WorkerId,
			Type:          models.TxTaskCompleted,
			Amount:        amount,
			Description:   fmt.Sprintf("Pickup task #%d completed (report #%d)", task.ID, task.ReportId),
			ReferenceId:   task.ID,
			ReferenceType: models.RefTask,
			ActorId:       actorId,
		})
		if err != nil {
			return err
		}

		if err := models.IncrementUserPoints(tx, task.WorkerId, amount); err != nil {
			return err
		}

		return models.EnqueueNotification(tx, "task_completed", task.WorkerId, task.ID, models.RefTask, map[string]interface{}{
			"task_id": task.ID,
			"points":  amount,
		})
	})
	if err != nil {
		return nil, err
	}

	if to == models.TaskStatusCompleted {
		models.InvalidateLeaderboard()
	}
	return models.GetWorkerTask(ctx, taskId)
}
