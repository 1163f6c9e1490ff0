package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

// Failure taxonomy for the credit core. Callers test with errors.Is; the API
// layer maps these to HTTP statuses and stable user-facing messages.
var (
	// ErrorRecordNotFound: referenced entity/user/task absent.
	ErrorRecordNotFound = errors.New("record not found")

	// ErrorAlreadyFinalized: transition attempted on a non-pending entity.
	// Recoverable by the caller; surfaced as "already processed".
	ErrorAlreadyFinalized = errors.New("already finalized")

	// ErrorDuplicateReference: ledger uniqueness violation. If this surfaces
	// past ErrorAlreadyFinalized the conditional-update guard was bypassed;
	// it is logged as a consistency alarm at the append site.
	ErrorDuplicateReference = errors.New("duplicate ledger reference")

	// ErrorUnauthorized: actor lacks the required role/ownership relation.
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorInvalidTransition: task/entity state machine violation
	// (skipped or backwards step).
	ErrorInvalidTransition = errors.New("invalid transition")
)

// IsDuplicateKeyErr reports MySQL error 1062 (duplicate entry for a unique
// key). The ledger append path translates it to ErrorDuplicateReference.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
