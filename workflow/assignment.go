package workflow

import (
	"sort"
	"time"

	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"gorm.io/gorm"
)

// candidate is a worker whose service circle covers a report location.
type candidate struct {
	Worker     *models.User
	DistanceKm float64
}

// eligibleCandidates filters workers to those whose service radius covers
// (lat, lng) and sorts them nearest-first. Workers without an explicit
// radius use defaultRadiusKm. Distance ties break on worker id, i.e. the
// earliest-registered worker wins.
func eligibleCandidates(lat float64, lng float64, workers []*models.User, defaultRadiusKm float64) []candidate {
	var out []candidate
	for _, worker := range workers {
		if worker.ServiceLat == nil || worker.ServiceLng == nil {
			continue
		}
		radius := defaultRadiusKm
		if worker.ServiceRadiusKm != nil {
			radius = *worker.ServiceRadiusKm
		}
		distance := utils.HaversineKM(lat, lng, *worker.ServiceLat, *worker.ServiceLng)
		if distance > radius {
			continue
		}
		out = append(out, candidate{Worker: worker, DistanceKm: distance})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Worker.ID < out[j].Worker.ID
	})
	return out
}

// assignWorkersTx creates pickup tasks for a freshly verified report, inside
// the verifying transaction. In nearest mode only the closest eligible worker
// gets a task; in broadcast mode every eligible worker does. No eligible
// worker is not an error: the report stays verified and unassigned, and the
// admin sees an empty tasks_created list.
func (e *Engine) assignWorkersTx(tx *gorm.DB, report *models.WasteReport) ([]*models.WorkerTask, error) {

	workers, err := models.ListAssignableWorkers(tx)
	if err != nil {
		return nil, err
	}

	candidates := eligibleCandidates(report.Lat, report.Lng, workers, e.DefaultRadiusKm)
	if len(candidates) == 0 {
		e.Logger.WithField("report_id", report.ID).Warn("no eligible worker for verified report")
		return nil, nil
	}
	if e.AssignmentMode != config.AssignmentModeBroadcast {
		candidates = candidates[:1]
	}

	now := time.Now().UTC()
	tasks := make([]*models.WorkerTask, 0, len(candidates))
	for _, c := range candidates {
		task := &models.WorkerTask{
			ReportId:   report.ID,
			WorkerId:   c.Worker.ID,
			Status:     models.TaskStatusAssigned,
			DistanceKm: c.DistanceKm,
			AssignedAt: now,
		}
		if err := tx.Create(task).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				// Re-verification cannot happen (status guard), so a
				// duplicate task means a racing assignment already won.
				continue
			}
			return nil, err
		}
		if err := models.EnqueueNotification(tx, "task_assigned", c.Worker.ID, task.ID, models.RefTask, map[string]interface{}{
			"task_id":     task.ID,
			"report_id":   report.ID,
			"distance_km": c.DistanceKm,
		}); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
