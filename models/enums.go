package models

import (
	"errors"
)

/* Roles */

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleChampion UserRole = "champion"
	RoleWorker   UserRole = "worker"
	RoleCitizen  UserRole = "citizen"
)

func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case RoleAdmin, RoleChampion, RoleWorker, RoleCitizen:
		return UserRole(s), nil
	}
	return "", errors.New("invalid user role")
}

/* Waste categories */

type WasteCategory string

const (
	CategoryPlastic WasteCategory = "plastic"
	CategoryPaper   WasteCategory = "paper"
	CategoryMetal   WasteCategory = "metal"
	CategoryGlass   WasteCategory = "glass"
	CategoryOrganic WasteCategory = "organic"
	CategoryEwaste  WasteCategory = "ewaste"
	CategoryMixed   WasteCategory = "mixed"
)

func ParseWasteCategory(s string) (WasteCategory, error) {
	switch WasteCategory(s) {
	case CategoryPlastic, CategoryPaper, CategoryMetal, CategoryGlass,
		CategoryOrganic, CategoryEwaste, CategoryMixed:
		return WasteCategory(s), nil
	}
	return "", errors.New("invalid waste category")
}

/* Entity lifecycle statuses.
   Statuses are closed types; every transition site switches exhaustively so a
   new state cannot appear without updating the state machine. */

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusVerified ReportStatus = "verified"
	ReportStatusRejected ReportStatus = "rejected"
)

func ParseReportStatus(s string) (ReportStatus, error) {
	switch ReportStatus(s) {
	case ReportStatusPending, ReportStatusVerified, ReportStatusRejected:
		return ReportStatus(s), nil
	}
	return "", errors.New("invalid report status")
}

// IsTerminal reports whether no further transition is permitted.
func (s ReportStatus) IsTerminal() bool {
	switch s {
	case ReportStatusVerified, ReportStatusRejected:
		return true
	case ReportStatusPending:
		return false
	}
	return false
}

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusVerified JobStatus = "verified"
	JobStatusRejected JobStatus = "rejected"
)

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusVerified, JobStatusRejected:
		return true
	case JobStatusPending:
		return false
	}
	return false
}

type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusApproved ListingStatus = "approved"
	ListingStatusRejected ListingStatus = "rejected"
	ListingStatusSold     ListingStatus = "sold"
)

// Approved listings may still move to sold; rejected and sold are terminal.
func (s ListingStatus) IsTerminal() bool {
	switch s {
	case ListingStatusRejected, ListingStatusSold:
		return true
	case ListingStatusPending, ListingStatusApproved:
		return false
	}
	return false
}

type ParticipationStatus string

const (
	ParticipationStatusPending  ParticipationStatus = "pending"
	ParticipationStatusVerified ParticipationStatus = "verified"
	ParticipationStatusRejected ParticipationStatus = "rejected"
)

func (s ParticipationStatus) IsTerminal() bool {
	switch s {
	case ParticipationStatusVerified, ParticipationStatusRejected:
		return true
	case ParticipationStatusPending:
		return false
	}
	return false
}

/* Worker task state machine: assigned -> in_progress -> completed.
   Linear, no skipping, no cycling back. */

type TaskStatus string

const (
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// CanTransitionTo returns true only for the single legal next step.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusAssigned:
		return next == TaskStatusInProgress
	case TaskStatusInProgress:
		return next == TaskStatusCompleted
	case TaskStatusCompleted:
		return false
	}
	return false
}

/* Ledger */

// TransactionType is the business reason for a ledger row.
type TransactionType string

const (
	TxReportVerified      TransactionType = "report_verified"
	TxJobVerified         TransactionType = "job_verified"
	TxMarketplaceApproved TransactionType = "marketplace_approved"
	TxTaskCompleted       TransactionType = "task_completed"
	TxEventParticipation  TransactionType = "event_participation"
	TxManualAdjustment    TransactionType = "manual_adjustment"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TxReportVerified, TxJobVerified, TxMarketplaceApproved,
		TxTaskCompleted, TxEventParticipation, TxManualAdjustment:
		return TransactionType(s), nil
	}
	return "", errors.New("invalid transaction type")
}

// ReferenceType identifies which entity kind caused a ledger row.
type ReferenceType string

const (
	RefReport        ReferenceType = "RPT"
	RefJob           ReferenceType = "JOB"
	RefMarketplace   ReferenceType = "MKT"
	RefTask          ReferenceType = "TSK"
	RefParticipation ReferenceType = "EVP"
	RefAdjustment    ReferenceType = "ADJ"
)

func (r ReferenceType) Valid() bool {
	switch r {
	case RefReport, RefJob, RefMarketplace, RefTask, RefParticipation, RefAdjustment:
		return true
	}
	return false
}
