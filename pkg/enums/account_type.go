package enums

import "fmt"

// AccountType describes the kind of subscriber account behind a user profile.
type AccountType string

const (
	AccountTypePersonal AccountType = "personal"
	AccountTypeBusiness AccountType = "business"
)

var validAccountTypes = []AccountType{
	AccountTypePersonal,
	AccountTypeBusiness,
}

// IsValid reports whether the value matches the canonical account type enum.
func (a AccountType) IsValid() bool {
	for _, candidate := range validAccountTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountType converts the raw string to AccountType.
func ParseAccountType(value string) (AccountType, error) {
	for _, candidate := range validAccountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account type %q", value)
}
