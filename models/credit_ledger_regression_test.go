package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"github.com/greenloop-dev/greenloop_backend/workflow"
	"github.com/shopspring/decimal"
)

// End-to-end ledger invariants against real MySQL + Redis:
// - concurrent verification posts exactly one ledger row
// - rejection posts nothing and leaves the balance untouched
// - verified reports assign the nearest eligible worker
// - task completion credits once, and only once
// - manual adjustments are idempotent per adjustment key
// - a drifted points cache is repaired from the ledger, even when a posting
//   races the recompute
// - approvals enqueue outbox notifications, rejections do not
// - the leaderboard ranks by balance, earliest account first on ties
func TestCreditLedger_VerificationAndReconcile(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "greenloop_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	engine := workflow.NewEngine(db, config.GetLogger())

	// Admin accounts cannot self-register; create one directly.
	hashed, err := utils.HashPassword("adminpw-test")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := models.User{
		Uuid: uuid.New(), Name: "Admin", Username: "admin@test",
		Password: string(hashed), Role: models.RoleAdmin, IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	adminCtx := utils.SetUserIdInContext(ctx, admin.ID)
	adminCtx = utils.SetUserNameInContext(adminCtx, admin.Name)
	adminCtx = utils.SetUserRoleInContext(adminCtx, string(models.RoleAdmin))

	citizen, err := models.CreateUser(ctx, &models.NewUser{
		Name: "Citizen", Username: "citizen@test", Password: "citizenpw",
	})
	if err != nil {
		t.Fatalf("CreateUser citizen: %v", err)
	}
	citizenCtx := utils.SetUserIdInContext(ctx, citizen.ID)
	citizenCtx = utils.SetUserNameInContext(citizenCtx, citizen.Name)
	citizenCtx = utils.SetUserRoleInContext(citizenCtx, string(models.RoleCitizen))

	lat, lng := 12.9716, 77.5946
	worker, err := models.CreateUser(ctx, &models.NewUser{
		Name: "Worker", Username: "worker@test", Password: "workerpw",
		Role: "worker", ServiceLat: &lat, ServiceLng: &lng,
	})
	if err != nil {
		t.Fatalf("CreateUser worker: %v", err)
	}
	workerCtx := utils.SetUserIdInContext(ctx, worker.ID)
	workerCtx = utils.SetUserNameInContext(workerCtx, worker.Name)
	workerCtx = utils.SetUserRoleInContext(workerCtx, string(models.RoleWorker))

	// --- concurrent verification: exactly one ledger row ---

	report, err := models.CreateWasteReport(citizenCtx, &models.NewWasteReport{
		Category: "plastic", WeightKg: decimal.NewFromInt(5),
		Lat: 12.9816, Lng: 77.6046,
	})
	if err != nil {
		t.Fatalf("CreateWasteReport: %v", err)
	}

	ref := workflow.EntityRef{Kind: models.RefReport, ID: report.ID}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Verify(adminCtx, ref, workflow.DecisionApprove, "looks good")
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, e := range errs {
		switch {
		case e == nil:
			successes++
		case errors.Is(e, utils.ErrorAlreadyFinalized):
			conflicts++
		default:
			t.Fatalf("unexpected verify error: %v", e)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected 1 success and 1 conflict, got %d/%d", successes, conflicts)
	}

	var ledgerRows int64
	if err := db.Model(&models.CreditTransaction{}).
		Where("reference_type = ? AND reference_id = ?", models.RefReport, report.ID).
		Count(&ledgerRows).Error; err != nil {
		t.Fatalf("count ledger rows: %v", err)
	}
	if ledgerRows != 1 {
		t.Fatalf("expected exactly 1 ledger row for the report, got %d", ledgerRows)
	}

	// The winning verification enqueued exactly one owner notification; the
	// losing goroutine rolled back and left nothing behind.
	var outboxRows int64
	if err := db.Model(&models.NotificationRecord{}).
		Where("kind = ? AND reference_type = ? AND reference_id = ?", "report_verified", models.RefReport, report.ID).
		Count(&outboxRows).Error; err != nil {
		t.Fatalf("count report outbox rows: %v", err)
	}
	if outboxRows != 1 {
		t.Fatalf("expected 1 report_verified outbox row, got %d", outboxRows)
	}
	if err := db.Model(&models.NotificationRecord{}).
		Where("kind = ? AND user_id = ?", "task_assigned", worker.ID).
		Count(&outboxRows).Error; err != nil {
		t.Fatalf("count assignment outbox rows: %v", err)
	}
	if outboxRows != 1 {
		t.Fatalf("expected 1 task_assigned outbox row, got %d", outboxRows)
	}

	// 5 kg plastic at the default 10 pts/kg.
	balance, err := models.GetUser(ctx, citizen.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if balance.Points != 50 {
		t.Fatalf("expected citizen balance 50, got %d", balance.Points)
	}

	// --- assignment: the nearby worker got the pickup ---

	tasks, err := models.ListWorkerTasks(ctx, worker.ID)
	if err != nil {
		t.Fatalf("ListWorkerTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 assigned task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.ReportId != report.ID || task.Status != models.TaskStatusAssigned {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.DistanceKm <= 0 || task.DistanceKm > 2 {
		t.Fatalf("implausible task distance %.3f km", task.DistanceKm)
	}

	// --- rejection posts nothing ---

	job, err := models.CreateCollectionJob(citizenCtx, &models.NewCollectionJob{
		Category: "paper", WeightKg: decimal.NewFromInt(3), Address: "12 MG Road",
	})
	if err != nil {
		t.Fatalf("CreateCollectionJob: %v", err)
	}
	result, err := engine.Verify(adminCtx, workflow.EntityRef{Kind: models.RefJob, ID: job.ID},
		workflow.DecisionReject, "photo does not match")
	if err != nil {
		t.Fatalf("reject job: %v", err)
	}
	if result.PointsAwarded != 0 || result.TransactionId != 0 {
		t.Fatalf("rejection must not award points: %+v", result)
	}
	var jobRows int64
	if err := db.Model(&models.CreditTransaction{}).
		Where("reference_type = ? AND reference_id = ?", models.RefJob, job.ID).
		Count(&jobRows).Error; err != nil {
		t.Fatalf("count job ledger rows: %v", err)
	}
	if jobRows != 0 {
		t.Fatalf("expected 0 ledger rows for rejected job, got %d", jobRows)
	}
	if err := db.Model(&models.NotificationRecord{}).
		Where("reference_type = ? AND reference_id = ?", models.RefJob, job.ID).
		Count(&outboxRows).Error; err != nil {
		t.Fatalf("count rejected job outbox rows: %v", err)
	}
	if outboxRows != 0 {
		t.Fatalf("rejection must not enqueue a notification, got %d rows", outboxRows)
	}
	balance, _ = models.GetUser(ctx, citizen.ID)
	if balance.Points != 50 {
		t.Fatalf("rejection changed the balance: %d", balance.Points)
	}

	// A second decision on the finalized job must conflict.
	if _, err := engine.Verify(adminCtx, workflow.EntityRef{Kind: models.RefJob, ID: job.ID},
		workflow.DecisionApprove, ""); !errors.Is(err, utils.ErrorAlreadyFinalized) {
		t.Fatalf("expected AlreadyFinalized on re-verify, got %v", err)
	}

	// --- task lifecycle: strict order, one credit, worker-only ---

	// Nobody but the assigned worker moves a task, admins included.
	if _, err := engine.StartTask(adminCtx, task.ID); !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("expected Unauthorized for non-assignee start, got %v", err)
	}

	if _, err := engine.CompleteTask(workerCtx, task.ID); !errors.Is(err, utils.ErrorInvalidTransition) {
		t.Fatalf("expected InvalidTransition completing an assigned task, got %v", err)
	}
	if _, err := engine.StartTask(workerCtx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	completed, err := engine.CompleteTask(workerCtx, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if completed.Status != models.TaskStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed task %+v", completed)
	}
	if _, err := engine.CompleteTask(workerCtx, task.ID); !errors.Is(err, utils.ErrorAlreadyFinalized) {
		t.Fatalf("expected AlreadyFinalized on double complete, got %v", err)
	}

	workerBalance, _ := models.GetUser(ctx, worker.ID)
	if workerBalance.Points != 20 {
		t.Fatalf("expected worker balance 20, got %d", workerBalance.Points)
	}

	// --- event participation: champion-gated verification ---

	champion, err := models.CreateUser(ctx, &models.NewUser{
		Name: "Champion", Username: "champion@test", Password: "championpw", Role: "champion",
	})
	if err != nil {
		t.Fatalf("CreateUser champion: %v", err)
	}
	championCtx := utils.SetUserIdInContext(ctx, champion.ID)
	championCtx = utils.SetUserNameInContext(championCtx, champion.Name)
	championCtx = utils.SetUserRoleInContext(championCtx, string(models.RoleChampion))

	event, err := models.CreateCleanupEvent(championCtx, &models.NewCleanupEvent{
		Title: "Lake Cleanup", Lat: 12.97, Lng: 77.59, StartsAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateCleanupEvent: %v", err)
	}
	participation, err := models.JoinCleanupEvent(workerCtx, event.ID)
	if err != nil {
		t.Fatalf("JoinCleanupEvent: %v", err)
	}
	if _, err := models.JoinCleanupEvent(workerCtx, event.ID); err == nil {
		t.Fatal("expected error on duplicate join")
	}

	// A different champion cannot verify someone else's event.
	rival, err := models.CreateUser(ctx, &models.NewUser{
		Name: "Rival", Username: "rival@test", Password: "rivalpw99", Role: "champion",
	})
	if err != nil {
		t.Fatalf("CreateUser rival: %v", err)
	}
	rivalCtx := utils.SetUserIdInContext(ctx, rival.ID)
	rivalCtx = utils.SetUserRoleInContext(rivalCtx, string(models.RoleChampion))
	if _, err := engine.Verify(rivalCtx, workflow.EntityRef{Kind: models.RefParticipation, ID: participation.ID},
		workflow.DecisionApprove, ""); !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("expected Unauthorized for rival champion, got %v", err)
	}

	evpResult, err := engine.Verify(championCtx, workflow.EntityRef{Kind: models.RefParticipation, ID: participation.ID},
		workflow.DecisionApprove, "attended")
	if err != nil {
		t.Fatalf("verify participation: %v", err)
	}
	if evpResult.PointsAwarded != 15 {
		t.Fatalf("expected 15 participation points, got %d", evpResult.PointsAwarded)
	}
	workerBalance, _ = models.GetUser(ctx, worker.ID)
	if workerBalance.Points != 35 {
		t.Fatalf("expected worker balance 35 after event, got %d", workerBalance.Points)
	}

	// --- manual adjustment idempotency ---

	txId, err := engine.ManualAdjustment(adminCtx, citizen.ID, -5, 1001, "correction")
	if err != nil {
		t.Fatalf("ManualAdjustment: %v", err)
	}
	if txId == 0 {
		t.Fatal("expected a transaction id")
	}
	if _, err := engine.ManualAdjustment(adminCtx, citizen.ID, -5, 1001, "correction retry"); !errors.Is(err, utils.ErrorDuplicateReference) {
		t.Fatalf("expected DuplicateReference on retried adjustment, got %v", err)
	}
	balance, _ = models.GetUser(ctx, citizen.ID)
	if balance.Points != 45 {
		t.Fatalf("expected citizen balance 45 after adjustment, got %d", balance.Points)
	}

	// Non-admins cannot adjust.
	if _, err := engine.ManualAdjustment(citizenCtx, citizen.ID, 1000, 1002, "nice try"); !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	// --- reconcile repairs a drifted cache ---

	if err := db.Model(&models.User{}).Where("id = ?", citizen.ID).
		Update("points", 9999).Error; err != nil {
		t.Fatalf("corrupt points cache: %v", err)
	}
	recon, err := engine.Reconcile(adminCtx, citizen.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !recon.Drifted || !recon.Repaired {
		t.Fatalf("expected drift repair, got %+v", recon)
	}
	if recon.LedgerBalance != 45 {
		t.Fatalf("expected ledger balance 45, got %d", recon.LedgerBalance)
	}
	balance, _ = models.GetUser(ctx, citizen.ID)
	if balance.Points != 45 {
		t.Fatalf("cache not repaired: %d", balance.Points)
	}

	// A reconcile racing a posting must not clobber the posted increment:
	// the user row is locked for the duration of the recompute.
	var raceWg sync.WaitGroup
	raceWg.Add(2)
	go func() {
		defer raceWg.Done()
		if _, err := engine.ManualAdjustment(adminCtx, worker.ID, 5, 2001, "bonus"); err != nil {
			t.Errorf("ManualAdjustment during reconcile: %v", err)
		}
	}()
	go func() {
		defer raceWg.Done()
		if _, err := engine.Reconcile(adminCtx, worker.ID); err != nil {
			t.Errorf("Reconcile during adjustment: %v", err)
		}
	}()
	raceWg.Wait()
	workerBalance, _ = models.GetUser(ctx, worker.ID)
	if workerBalance.Points != 40 {
		t.Fatalf("expected worker balance 40 after racing adjustment, got %d", workerBalance.Points)
	}

	// Conservation: every user's cache equals the ledger sum.
	for _, userId := range []int{citizen.ID, worker.ID, admin.ID, champion.ID, rival.ID} {
		recon, err := engine.Reconcile(adminCtx, userId)
		if err != nil {
			t.Fatalf("Reconcile user %d: %v", userId, err)
		}
		if recon.Drifted {
			t.Fatalf("user %d drifted after workflow: %+v", userId, recon)
		}
	}

	// --- leaderboard: balance descending, earliest account wins ties ---

	// citizen 45, worker 40, then the three zero-balance accounts in
	// registration order; champion before rival exercises the tie-break.
	entries, err := models.GetLeaderboard(ctx, 100)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	wantOrder := []int{citizen.ID, worker.ID, admin.ID, champion.ID, rival.ID}
	if len(entries) != len(wantOrder) {
		t.Fatalf("expected %d leaderboard entries, got %d", len(wantOrder), len(entries))
	}
	for i, want := range wantOrder {
		if entries[i].UserId != want {
			t.Fatalf("leaderboard rank %d: expected user %d, got %d", i+1, want, entries[i].UserId)
		}
	}
	if entries[0].Balance != 45 || entries[1].Balance != 40 {
		t.Fatalf("unexpected top balances %d/%d", entries[0].Balance, entries[1].Balance)
	}
	for _, e := range entries[2:] {
		if e.Balance != 0 {
			t.Fatalf("expected zero balance for user %d, got %d", e.UserId, e.Balance)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("greenloop-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("greenloop-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=greenloop_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
