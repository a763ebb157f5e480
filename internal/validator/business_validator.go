package validator

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campushub/schedule-service/internal/models"
)

// BusinessValidator enforces the schedule date invariants on top of struct
// validation:
//   - endDate, when present, must not precede startDate
//   - deadline applies only to assignment-type schedules
//   - a meeting link is only meaningful for online schedules
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator(validate *validator.Validate) *BusinessValidator {
	return &BusinessValidator{validate: validate}
}

// Validate validates struct tags for any request.
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateScheduleCreate validates a creation request.
func (bv *BusinessValidator) ValidateScheduleCreate(req *ScheduleCreateRequest) ValidationErrors {
	errs := bv.Validate(req)
	errs = append(errs, validateScheduleDates(req.Type, req.StartDate, req.EndDate, req.Deadline)...)

	if req.MeetingLink != nil && !req.IsOnline {
		errs = append(errs, ValidationError{
			Field:   "meeting_link",
			Message: "only allowed for online schedules",
		})
	}

	return errs
}

// ValidateScheduleUpdate validates a patch against the current schedule,
// checking the invariants on the merged result.
func (bv *BusinessValidator) ValidateScheduleUpdate(req *ScheduleUpdateRequest, existing *models.Schedule) ValidationErrors {
	errs := bv.Validate(req)

	startDate := existing.StartDate
	if req.StartDate != nil {
		startDate = *req.StartDate
	}
	endDate := existing.EndDate
	if req.EndDate != nil {
		endDate = req.EndDate
	}
	deadline := existing.Deadline
	if req.Deadline != nil {
		deadline = req.Deadline
	}

	errs = append(errs, validateScheduleDates(existing.Type, startDate, endDate, deadline)...)

	isOnline := existing.IsOnline
	if req.IsOnline != nil {
		isOnline = *req.IsOnline
	}
	meetingLink := existing.MeetingLink
	if req.MeetingLink != nil {
		meetingLink = req.MeetingLink
	}
	if meetingLink != nil && !isOnline {
		errs = append(errs, ValidationError{
			Field:   "meeting_link",
			Message: "only allowed for online schedules",
		})
	}

	return errs
}

func validateScheduleDates(scheduleType models.ScheduleType, startDate time.Time, endDate, deadline *time.Time) ValidationErrors {
	var errs ValidationErrors

	if endDate != nil && endDate.Before(startDate) {
		errs = append(errs, ValidationError{
			Field:   "end_date",
			Message: "must not be before start_date",
		})
	}

	if deadline != nil && scheduleType != models.TypeAssignment {
		errs = append(errs, ValidationError{
			Field:   "deadline",
			Message: "only applies to assignment schedules",
		})
	}

	return errs
}
