package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors returned by the repositories. Services map them to typed API errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrTeacherNotFound  = errors.New("referenced teacher not found")
	ErrDuplicateSubject = errors.New("subject code already assigned")
	ErrDuplicatePacket  = errors.New("packet code already assigned")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrUnavailable      = errors.New("teacher not available on this date")
	ErrAlreadyCompleted = errors.New("assignment already completed")
	ErrTeacherInUse     = errors.New("teacher has assignments")
)

const pqUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique constraint failure and returns
// a detail string naming the violated constraint or column.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) == pqUniqueViolation {
			return pqErr.Constraint + " " + pqErr.Message, true
		}
		return "", false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")) {
			return liteErr.Error(), true
		}
	}
	return "", false
}

// mapAssignmentUnique converts unique index violations on assignments into sentinels.
func mapAssignmentUnique(err error) error {
	detail, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(detail, "subject_code"):
		return ErrDuplicateSubject
	case strings.Contains(detail, "packet_code"):
		return ErrDuplicatePacket
	}
	return err
}

// mapTeacherUnique converts the case-insensitive email index violation into ErrDuplicateEmail.
func mapTeacherUnique(err error) error {
	detail, ok := uniqueViolation(err)
	if ok && strings.Contains(detail, "email") {
		return ErrDuplicateEmail
	}
	return err
}
