package domain

import "errors"

// Domain sentinels returned by the service's internal helpers. They are
// translated into result failures exactly once at the operation boundary.
var (
	ErrNotFound          = errors.New("not_found")
	ErrForbidden         = errors.New("insufficient_permissions")
	ErrReportSubmitted   = errors.New("report_submitted")
	ErrReportLocked      = errors.New("report_locked")
	ErrNoEntries         = errors.New("cra_has_no_entries")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidState      = errors.New("invalid_cra_state")
	ErrDuplicateEntry    = errors.New("duplicate_entry")
	ErrMissingInput      = errors.New("missing_input")
	ErrMissionNotLinked  = errors.New("mission_not_on_report")
	ErrMissionLinked     = errors.New("mission_already_linked")
	ErrMissionMissing    = errors.New("mission_not_found")
)
