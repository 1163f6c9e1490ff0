package workflow

import (
	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Engine is the credit core: verification, assignment, task transitions and
// reconciliation. Dependencies are injected at construction (main() wires
// one Engine per process); nothing in this package reaches for globals, so
// tests can run an Engine against a throwaway DB.
type Engine struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Policy *PointsPolicy

	// Assignment behaviour; see config.AssignmentMode.
	AssignmentMode  string
	DefaultRadiusKm float64
}

func NewEngine(db *gorm.DB, logger *logrus.Logger) *Engine {
	return &Engine{
		DB:              db,
		Logger:          logger,
		Policy:          LoadPointsPolicy(),
		AssignmentMode:  config.AssignmentMode(),
		DefaultRadiusKm: config.DefaultWorkerRadiusKm(),
	}
}

// Decision is a verifier's call on a pending entity.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// EntityRef names the entity a Verify call targets.
type EntityRef struct {
	Kind models.ReferenceType `json:"kind"`
	ID   int                  `json:"id"`
}

// VerifyResult reports what a successful Verify did.
type VerifyResult struct {
	Ref           EntityRef            `json:"ref"`
	Status        string               `json:"status"`
	PointsAwarded int                  `json:"points_awarded"`
	TransactionId int                  `json:"transaction_id,omitempty"`
	TasksCreated  []*models.WorkerTask `json:"tasks_created,omitempty"`
}
