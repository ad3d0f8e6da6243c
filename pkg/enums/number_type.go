package enums

import "fmt"

// NumberType describes whether an order activates a new number or ports an existing one.
type NumberType string

const (
	NumberTypeNew      NumberType = "New"
	NumberTypeExisting NumberType = "Existing"
)

var validNumberTypes = []NumberType{
	NumberTypeNew,
	NumberTypeExisting,
}

// IsValid reports whether the value matches the canonical number type enum.
func (n NumberType) IsValid() bool {
	for _, candidate := range validNumberTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNumberType converts the raw string to NumberType.
func ParseNumberType(value string) (NumberType, error) {
	for _, candidate := range validNumberTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid number type %q", value)
}
