package service

import (
	"errors"

	"go.uber.org/zap"

	cradomain "github.com/indielance/cra/internal/cra/domain"
	"github.com/indielance/cra/internal/cra/validation"
	"github.com/indielance/cra/internal/result"
)

// badRequestMessages maps validation sentinels to the stable message the
// transport layer may expose. Codes are the sentinel text itself.
var badRequestMessages = map[error]string{
	validation.ErrInvalidMonth:         "month must be between 1 and 12",
	validation.ErrInvalidYear:          "year is outside the accepted range",
	validation.ErrInvalidCurrency:      "currency is not in the configured allow-list",
	validation.ErrMissingDate:          "date is required",
	validation.ErrInvalidDateFormat:    "date must be formatted YYYY-MM-DD",
	validation.ErrFutureDate:           "date cannot be in the future",
	validation.ErrInvalidQuantity:      "quantity must be greater than zero",
	validation.ErrQuantityExceedsLimit: "quantity exceeds the policy ceiling",
	validation.ErrInvalidUnitPrice:     "unit price is out of range",
	validation.ErrPriceExceedsLimit:    "unit price exceeds the policy ceiling",
	validation.ErrDescriptionTooLong:   "description exceeds 500 characters",
	cradomain.ErrMissingInput:          "a required reference is missing",
	cradomain.ErrMissionNotLinked:      "mission is not attached to this report",
}

var conflictMessages = map[error]string{
	cradomain.ErrReportSubmitted:   "report has been submitted and is read-only",
	cradomain.ErrReportLocked:      "report is locked",
	cradomain.ErrNoEntries:         "report has no active entries",
	cradomain.ErrInvalidTransition: "report status does not allow this operation",
	cradomain.ErrInvalidState:      "report must be draft for entry mutation",
	cradomain.ErrDuplicateEntry:    "an active entry already exists for this report, mission and date",
	cradomain.ErrMissionLinked:     "mission is already attached to this report",
}

// failureFor is the single point where internal errors become result
// failures. Domain and validation sentinels map to their taxonomy entry;
// anything unrecognized is logged and collapsed to internal_error, leaving
// the transaction outcome explicitly unknown to the caller.
func (s *Service) failureFor(err error, resourceType string) *result.Failure {
	var failure *result.Failure
	if errors.As(err, &failure) {
		return failure
	}

	switch {
	case errors.Is(err, cradomain.ErrNotFound):
		return result.NotFound(resourceType)
	case errors.Is(err, cradomain.ErrMissionMissing):
		return result.NotFound("mission")
	case errors.Is(err, cradomain.ErrForbidden):
		return result.Forbidden("insufficient_permissions",
			"actor is not allowed to act on this resource").WithResource(resourceType)
	}

	if msg, ok := conflictMessages[err]; ok {
		return result.Conflict(err.Error(), msg).WithResource(resourceType)
	}
	if msg, ok := badRequestMessages[err]; ok {
		return result.BadRequest(err.Error(), msg).WithResource(resourceType)
	}

	s.log.Error("unexpected fault", zap.String("resource", resourceType), zap.Error(err))
	return result.Internal(resourceType)
}
