// Package errors provides standardized error handling patterns for flowtest.
// It includes error classification, standard error variables, and helper functions
// for consistent error wrapping and classification across the harness.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorConfig represents errors caused by invalid configuration or arguments,
	// reported synchronously at the call that caused them
	ErrorConfig ErrorClass = iota
	// ErrorState represents errors caused by an operation that is illegal in the
	// current lifecycle state of its target
	ErrorState
	// ErrorLifecycle represents failures raised by a lifecycle hook
	ErrorLifecycle
	// ErrorTrigger represents failures raised by a component's trigger logic
	ErrorTrigger
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorConfig:
		return "config"
	case ErrorState:
		return "state"
	case ErrorLifecycle:
		return "lifecycle"
	case ErrorTrigger:
		return "trigger"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Configuration errors
	ErrInvalidIterations = errors.New("iteration count must be at least 1")
	ErrInvalidThreads    = errors.New("thread count must be at least 1")
	ErrSerialOnly        = errors.New("component is triggered serially")
	ErrInvalidConfig     = errors.New("invalid configuration")

	// Registry errors
	ErrUnknownService   = errors.New("service is not known")
	ErrDuplicateService = errors.New("service identifier already registered")
	ErrUnknownProperty  = errors.New("property is not known")

	// State machine errors
	ErrServiceEnabled  = errors.New("service is enabled")
	ErrServiceDisabled = errors.New("service is disabled")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorConfig
}

// IsState checks if an error is a lifecycle-state error
func IsState(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorState
}

// IsLifecycle checks if an error is a lifecycle hook failure
func IsLifecycle(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorLifecycle
}

// IsTrigger checks if an error is a trigger failure
func IsTrigger(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorTrigger
}

func classOf(err error) (ErrorClass, bool) {
	if err == nil {
		return 0, false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}

	// Unclassified sentinels fall back to their natural class
	switch {
	case errors.Is(err, ErrInvalidIterations),
		errors.Is(err, ErrInvalidThreads),
		errors.Is(err, ErrSerialOnly),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnknownService),
		errors.Is(err, ErrDuplicateService),
		errors.Is(err, ErrUnknownProperty):
		return ErrorConfig, true
	case errors.Is(err, ErrServiceEnabled),
		errors.Is(err, ErrServiceDisabled):
		return ErrorState, true
	}

	return 0, false
}

// Classify returns the error class for an error. Unclassified errors default to
// ErrorTrigger, matching the run loop's treatment of arbitrary component errors.
func Classify(err error) ErrorClass {
	if class, ok := classOf(err); ok {
		return class
	}
	return ErrorTrigger
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapConfig wraps an error as a configuration error with context
func WrapConfig(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorConfig, wrappedErr, component, method, wrappedErr.Error())
}

// WrapState wraps an error as a lifecycle-state error with context
func WrapState(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorState, wrappedErr, component, method, wrappedErr.Error())
}

// WrapLifecycle wraps an error as a lifecycle hook failure with context
func WrapLifecycle(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorLifecycle, wrappedErr, component, method, wrappedErr.Error())
}

// WrapTrigger wraps an error as a trigger failure with context
func WrapTrigger(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTrigger, wrappedErr, component, method, wrappedErr.Error())
}
