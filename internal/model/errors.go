package model

import (
	"errors"
	"fmt"
)

// Category classifies a failed model call.
type Category string

const (
	CategoryCredentials Category = "credentials"
	CategoryStatus      Category = "status"
	CategorySafety      Category = "safety"
	CategoryEmpty       Category = "empty"
	CategoryTimeout     Category = "timeout"
	CategoryTransport   Category = "transport"
	CategoryUnavailable Category = "unavailable"
)

// Error is returned for every failed model call.
type Error struct {
	Category   Category
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("model %s error", e.Category)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsCategory reports whether err is a model error of category c.
func IsCategory(err error, c Category) bool {
	var me *Error
	return errors.As(err, &me) && me.Category == c
}
