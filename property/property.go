// Package property defines the descriptor and validation-rule model shared by
// components and auxiliary services: property descriptors, allowable values,
// and the pass/fail results a validate operation returns.
package property

import "fmt"

// AllowableValue constrains a property to one of a fixed set of values.
type AllowableValue struct {
	Value       string
	DisplayName string
	Description string
}

// ValidationResult is the outcome of validating a single subject/input pair.
type ValidationResult struct {
	Subject     string
	Input       string
	Explanation string
	Valid       bool
}

// ValidationContext exposes the currently configured property values to
// validators that need to cross-check related properties.
type ValidationContext interface {
	// Property returns the configured value for a property name.
	Property(name string) (string, bool)
	// Properties returns a copy of all configured property values by name.
	Properties() map[string]string
}

// Validator checks one candidate value for a property.
type Validator func(subject, input string, vctx ValidationContext) ValidationResult

// Descriptor describes one configurable property of a component or service.
type Descriptor struct {
	Name            string
	Description     string
	Required        bool
	DefaultValue    string
	AllowableValues []AllowableValue
	Validators      []Validator
}

// Validate runs the descriptor's constraints against a candidate value and
// returns the first failing result, or a passing result when all checks pass.
func (d Descriptor) Validate(value string, vctx ValidationContext) ValidationResult {
	if d.Required && value == "" {
		return ValidationResult{
			Subject:     d.Name,
			Input:       value,
			Explanation: fmt.Sprintf("%s is required", d.Name),
		}
	}

	if len(d.AllowableValues) > 0 && value != "" {
		allowed := false
		for _, av := range d.AllowableValues {
			if av.Value == value {
				allowed = true
				break
			}
		}
		if !allowed {
			return ValidationResult{
				Subject:     d.Name,
				Input:       value,
				Explanation: fmt.Sprintf("%q is not an allowable value for %s", value, d.Name),
			}
		}
	}

	for _, validator := range d.Validators {
		result := validator(d.Name, value, vctx)
		if !result.Valid {
			return result
		}
	}

	return ValidationResult{Subject: d.Name, Input: value, Valid: true}
}

// NonEmpty is a standard validator rejecting empty values.
func NonEmpty(subject, input string, _ ValidationContext) ValidationResult {
	if input == "" {
		return ValidationResult{
			Subject:     subject,
			Input:       input,
			Explanation: fmt.Sprintf("%s must not be empty", subject),
		}
	}
	return ValidationResult{Subject: subject, Input: input, Valid: true}
}
