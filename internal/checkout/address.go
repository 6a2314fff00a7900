package checkout

import (
	"regexp"
	"strings"
)

// ShippingAddress is the structured address collected on the Shipping step.
type ShippingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern    = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
	usPostalPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// Validate checks every field and returns per-field error messages. An
// empty map means the address is structurally valid. Validation errors are
// recovered locally; they are never propagated further.
func (a ShippingAddress) Validate() map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(a.FirstName) == "" {
		errs["first_name"] = "First name is required"
	}
	if strings.TrimSpace(a.LastName) == "" {
		errs["last_name"] = "Last name is required"
	}
	if strings.TrimSpace(a.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(a.Email) {
		errs["email"] = "Please enter a valid email address"
	}
	if strings.TrimSpace(a.Phone) == "" {
		errs["phone"] = "Phone number is required"
	} else if !phonePattern.MatchString(a.Phone) {
		errs["phone"] = "Please enter a valid phone number"
	}
	if strings.TrimSpace(a.Address1) == "" {
		errs["address1"] = "Address is required"
	}
	if strings.TrimSpace(a.City) == "" {
		errs["city"] = "City is required"
	}
	if strings.TrimSpace(a.State) == "" {
		errs["state"] = "State is required"
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		errs["postal_code"] = "Postal code is required"
	} else if a.Country == "US" && !usPostalPattern.MatchString(a.PostalCode) {
		errs["postal_code"] = "Please enter a valid US postal code (12345 or 12345-6789)"
	}
	if strings.TrimSpace(a.Country) == "" {
		errs["country"] = "Country is required"
	}

	return errs
}

// FullName is the recipient name in the processor's shipping shape.
func (a ShippingAddress) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
