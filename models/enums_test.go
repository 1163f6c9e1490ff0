package models

import "testing"

func TestTaskStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    TaskStatus
		to      TaskStatus
		allowed bool
	}{
		{TaskStatusAssigned, TaskStatusInProgress, true},
		{TaskStatusInProgress, TaskStatusCompleted, true},
		{TaskStatusAssigned, TaskStatusCompleted, false},
		{TaskStatusCompleted, TaskStatusInProgress, false},
		{TaskStatusCompleted, TaskStatusAssigned, false},
		{TaskStatusInProgress, TaskStatusAssigned, false},
		{TaskStatusAssigned, TaskStatusAssigned, false},
		{TaskStatusCompleted, TaskStatusCompleted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestStatusTerminality(t *testing.T) {
	if ReportStatusPending.IsTerminal() {
		t.Fatal("pending report must not be terminal")
	}
	if !ReportStatusVerified.IsTerminal() || !ReportStatusRejected.IsTerminal() {
		t.Fatal("verified and rejected reports must be terminal")
	}

	if JobStatusPending.IsTerminal() {
		t.Fatal("pending job must not be terminal")
	}
	if !JobStatusVerified.IsTerminal() || !JobStatusRejected.IsTerminal() {
		t.Fatal("verified and rejected jobs must be terminal")
	}

	// Approved listings stay mutable: the seller can still mark them sold.
	if ListingStatusApproved.IsTerminal() {
		t.Fatal("approved listing must not be terminal")
	}
	if !ListingStatusRejected.IsTerminal() || !ListingStatusSold.IsTerminal() {
		t.Fatal("rejected and sold listings must be terminal")
	}
}

func TestParseWasteCategory(t *testing.T) {
	category, err := ParseWasteCategory("plastic")
	if err != nil {
		t.Fatalf("ParseWasteCategory(plastic): %v", err)
	}
	if category != CategoryPlastic {
		t.Fatalf("expected plastic, got %s", category)
	}
	if _, err := ParseWasteCategory("uranium"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestParseReportStatus(t *testing.T) {
	for _, raw := range []string{"pending", "verified", "rejected"} {
		status, err := ParseReportStatus(raw)
		if err != nil {
			t.Fatalf("ParseReportStatus(%s): %v", raw, err)
		}
		if string(status) != raw {
			t.Fatalf("expected %s, got %s", raw, status)
		}
	}
	for _, raw := range []string{"", "approved", "PENDING", "done"} {
		if _, err := ParseReportStatus(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("worker")
	if err != nil {
		t.Fatalf("ParseUserRole(worker): %v", err)
	}
	if role != RoleWorker {
		t.Fatalf("expected worker, got %s", role)
	}
	if _, err := ParseUserRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseTransactionType(t *testing.T) {
	for _, raw := range []string{
		"report_verified", "job_verified", "marketplace_approved",
		"task_completed", "event_participation", "manual_adjustment",
	} {
		if _, err := ParseTransactionType(raw); err != nil {
			t.Fatalf("ParseTransactionType(%s): %v", raw, err)
		}
	}
	if _, err := ParseTransactionType("job_verified_minimum"); err == nil {
		t.Fatal("expected error: the job floor config key is not a transaction type")
	}
}

func TestReferenceTypeValid(t *testing.T) {
	for _, ref := range []ReferenceType{RefReport, RefJob, RefMarketplace, RefTask, RefParticipation, RefAdjustment} {
		if !ref.Valid() {
			t.Fatalf("expected %s to be valid", ref)
		}
	}
	if ReferenceType("XXX").Valid() {
		t.Fatal("expected XXX to be invalid")
	}
}
