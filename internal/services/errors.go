package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError carries a message safe to show to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// notFound maps gorm's record-not-found onto ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Scheduler queues a report for counter and score recomputation.
type Scheduler interface {
	ScheduleUpdate(reportID uint)
}

type noopScheduler struct{}

func (noopScheduler) ScheduleUpdate(uint) {}
