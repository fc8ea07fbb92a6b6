package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy. Wrap with the constructors and test with errors.Is.
var (
	// ErrData marks malformed or empty input
	ErrData = errors.New("data error")
	// ErrInsufficientHistory marks too few prior days for a lag, window or baseline
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrConfiguration marks an out-of-range threshold or hyperparameter
	ErrConfiguration = errors.New("configuration error")
	// ErrUndefinedMetric marks a metric with a zero denominator
	ErrUndefinedMetric = errors.New("undefined metric")
)

// NewDataError wraps ErrData
func NewDataError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrData, fmt.Sprintf(format, args...))
}

// NewInsufficientHistoryError wraps ErrInsufficientHistory
func NewInsufficientHistoryError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientHistory, fmt.Sprintf(format, args...))
}

// NewConfigurationError wraps ErrConfiguration
func NewConfigurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// NewUndefinedMetricError wraps ErrUndefinedMetric
func NewUndefinedMetricError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUndefinedMetric, fmt.Sprintf(format, args...))
}

func IsDataError(err error) bool { return errors.Is(err, ErrData) }
func IsInsufficientHistoryError(err error) bool { return errors.Is(err, ErrInsufficientHistory) }
func IsConfigurationError(err error) bool { return errors.Is(err, ErrConfiguration) }
func IsUndefinedMetricError(err error) bool { return errors.Is(err, ErrUndefinedMetric) }
