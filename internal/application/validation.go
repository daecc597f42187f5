package application

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/abeldaneesh/TMS-sub000/internal/scheduler"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := scheduler.ParseTimeOfDay(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("yyyymmdd", func(fl validator.FieldLevel) bool {
			_, err := scheduler.ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return Role(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// validateStruct runs the struct tags of input and returns the failures keyed
// by snake_case field name.
func validateStruct(input any) *ValidationError {
	vErr := &ValidationError{}
	err := inputValidator().Struct(input)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("input", err.Error())
		return vErr
	}
	for _, fe := range fieldErrs {
		field := snakeCase(fe.Field())
		if _, exists := vErr.FieldErrors[field]; exists {
			continue
		}
		vErr.add(field, fieldMessage(field, fe))
	}
	return vErr
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "hhmm":
		return field + " must be a time formatted as HH:mm"
	case "yyyymmdd":
		return field + " must be a date formatted as YYYY-MM-DD"
	case "role":
		return field + " must be a known role"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// snakeCase turns a Go field name such as DayOfWeek or HallID into day_of_week
// or hall_id. Element names of slices such as Facilities[0] keep their index.
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseSlot converts a date and a start/end pair. Formats have normally been
// checked by struct tags already; the cross-field rule start < end is
// enforced here. Failures are recorded on vErr.
func parseSlot(date, start, end string, vErr *ValidationError) (time.Time, scheduler.Interval, bool) {
	ok := true
	day, err := scheduler.ParseDate(date)
	if err != nil {
		if _, exists := vErr.FieldErrors["date"]; !exists {
			vErr.add("date", "date must be a date formatted as YYYY-MM-DD")
		}
		ok = false
	}
	s, sErr := scheduler.ParseTimeOfDay(start)
	if sErr != nil {
		if _, exists := vErr.FieldErrors["start"]; !exists {
			vErr.add("start", "start must be a time formatted as HH:mm")
		}
		ok = false
	}
	e, eErr := scheduler.ParseTimeOfDay(end)
	if eErr != nil {
		if _, exists := vErr.FieldErrors["end"]; !exists {
			vErr.add("end", "end must be a time formatted as HH:mm")
		}
		ok = false
	}
	if sErr != nil || eErr != nil {
		return day, scheduler.Interval{}, false
	}

	interval, err := scheduler.NewInterval(s, e)
	if err != nil {
		vErr.add("end", "end must be after start")
		return day, scheduler.Interval{}, false
	}
	return day, interval, ok
}
