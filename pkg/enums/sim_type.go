package enums

import "fmt"

// SIMType describes how cellular service is provisioned onto a device.
type SIMType string

const (
	SIMTypeESIM     SIMType = "eSIM"
	SIMTypePhysical SIMType = "Physical"
)

var validSIMTypes = []SIMType{
	SIMTypeESIM,
	SIMTypePhysical,
}

// IsValid reports whether the value matches the canonical SIM type enum.
func (s SIMType) IsValid() bool {
	for _, candidate := range validSIMTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSIMType converts the raw string to SIMType.
func ParseSIMType(value string) (SIMType, error) {
	for _, candidate := range validSIMTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sim type %q", value)
}
