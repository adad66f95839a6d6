package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., email already registered
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")

	// Eligibility failures, checked in this order on join.
	ErrContestNotJoinable     = errors.New("contest is not open for participation")
	ErrVipRequired            = errors.New("this contest is for VIP users only")
	ErrCapacityReached        = errors.New("contest has reached maximum participants limit")
	ErrAlreadyJoined          = errors.New("already participating in this contest")
	ErrAlreadyActiveElsewhere = errors.New("already participating in another active contest")

	// Participation state failures. None of these mutate state.
	ErrStaleQuestionIndex = errors.New("invalid question index")
	ErrAlreadySubmitted   = errors.New("participation already submitted")
	ErrTimeLimitExceeded  = errors.New("time limit exceeded for this question")

	// ErrDuplicateEntry means a leaderboard entry already exists for a
	// participation. The state machine should make this impossible.
	ErrDuplicateEntry = errors.New("duplicate leaderboard entry")

	// ErrTxConflict is surfaced only after the bounded retry is exhausted.
	ErrTxConflict = errors.New("transaction conflict, try again")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrVipRequired):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrContestNotJoinable),
		errors.Is(err, ErrCapacityReached),
		errors.Is(err, ErrStaleQuestionIndex),
		errors.Is(err, ErrAlreadySubmitted),
		errors.Is(err, ErrTimeLimitExceeded):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrAlreadyActiveElsewhere),
		errors.Is(err, ErrTxConflict):
		return http.StatusConflict
	}

	// Check for pgx specific errors (example for unique constraint)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// IsSerializationFailure reports whether err is a Postgres serialization or
// deadlock error that is safe to retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return constraint == "" || pgErr.ConstraintName == constraint
	}
	return false
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
