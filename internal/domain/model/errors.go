package model

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

var (
	// ErrProjection indicates a failed coordinate transform.
	ErrProjection = errors.New("projection failed")

	// ErrSchema indicates a feature missing a required attribute.
	ErrSchema = errors.New("schema violation")

	// ErrEmptyReferenceDataset indicates the reference source returned no features.
	ErrEmptyReferenceDataset = errors.New("empty reference dataset")

	// ErrInvalidConfig indicates an unusable configuration value.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ProjectionError is returned when a point cannot be transformed between frames.
type ProjectionError struct {
	From    Frame
	To      Frame
	Point   orb.Point
	Message string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("cannot project %v from %s to %s: %s", e.Point, e.From, e.To, e.Message)
}

func (e *ProjectionError) Is(target error) bool {
	return target == ErrProjection
}

func NewProjectionError(from, to Frame, p orb.Point, message string) *ProjectionError {
	return &ProjectionError{From: from, To: to, Point: p, Message: message}
}

// SchemaError describes a feature that lacks a mandatory field or repeats a
// value that must be unique.
type SchemaError struct {
	Field     string
	FeatureID string
	Reason    string
}

func (e *SchemaError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("feature %s: field %s %s", e.FeatureID, e.Field, e.Reason)
	}
	return fmt.Sprintf("feature %s: required field %s is missing", e.FeatureID, e.Field)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func NewSchemaError(field, featureID string) *SchemaError {
	return &SchemaError{Field: field, FeatureID: featureID}
}

// NewDuplicateError reports a feature whose field value was already taken by
// firstID.
func NewDuplicateError(field, featureID string, value any, firstID string) *SchemaError {
	return &SchemaError{
		Field:     field,
		FeatureID: featureID,
		Reason:    fmt.Sprintf("value %v duplicates feature %s", value, firstID),
	}
}

// ConfigError describes a rejected configuration value.
type ConfigError struct {
	Field   string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func NewConfigError(field string, value any, message string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

func IsProjectionError(err error) bool {
	return errors.Is(err, ErrProjection)
}

func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
