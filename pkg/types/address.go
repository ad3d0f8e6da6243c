package types

import "strings"

// Address carries a shipping address as stored on profile and order documents.
type Address struct {
	Street    string `json:"street"`
	AptNumber string `json:"apt_number,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// IsEmpty reports whether no address field carries a value.
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.AptNumber) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.Zip) == "" &&
		strings.TrimSpace(a.Country) == ""
}
