package orders

import (
	"regexp"
	"strings"

	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
)

const (
	minCardDigits = 15
	minCVVDigits  = 3
)

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

// ValidateStep checks whether the record holds everything its step needs
// before the step may be persisted and advanced from. Failures carry a
// per-field detail map.
func ValidateStep(r *OrderRecord, step enums.WizardStep) error {
	missing := map[string]string{}

	switch step {
	case enums.StepContactInfo:
		requireNonEmpty(missing, "first_name", r.Contact.FirstName)
		requireNonEmpty(missing, "last_name", r.Contact.LastName)
		requireNonEmpty(missing, "phone_number", r.Contact.PhoneNumber)
	case enums.StepDeviceCompatibility:
		requireNonEmpty(missing, "device_brand", r.Device.Brand)
		requireNonEmpty(missing, "device_model", r.Device.Model)
	case enums.StepSimSelection:
		if !r.SIM.Type.IsValid() {
			missing["sim_type"] = "must be eSIM or Physical"
		}
	case enums.StepNumberSelection:
		if !r.Number.Type.IsValid() {
			missing["number_type"] = "must be New or Existing"
		} else if r.Number.Type == enums.NumberTypeExisting {
			requireNonEmpty(missing, "selected_phone_number", r.Number.SelectedPhoneNumber)
		}
	case enums.StepBillingInfo:
		validateBilling(missing, r.Billing)
	case enums.StepNumberPortingOrSetup:
		validatePorting(missing, r.Number)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown wizard step")
	}

	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "step requirements not met").
			WithDetails(map[string]any{"step": int(step), "fields": missing})
	}
	return nil
}

func validateBilling(missing map[string]string, billing BillingInfo) {
	if len(cardDigits(billing.CreditCardNumber)) < minCardDigits {
		missing["credit_card_number"] = "must carry at least 15 digits"
	}
	if !expiryPattern.MatchString(strings.TrimSpace(billing.BillingDetails)) {
		missing["billing_details"] = "expiry must be MM/YY"
	}
	if len(cardDigits(billing.CVV)) < minCVVDigits {
		missing["cvv"] = "must carry at least 3 digits"
	}
	if !billing.AgreedToTerms {
		missing["agreed_to_terms"] = "must be accepted"
	}
	if !billing.AgreedToAutopay {
		missing["agreed_to_autopay"] = "must be accepted"
	}
	if !billing.AgreedToPrivacy {
		missing["agreed_to_privacy"] = "must be accepted"
	}
}

func validatePorting(missing map[string]string, number NumberInfo) {
	// Porting requirements only apply when transferring an existing number,
	// and an explicit skip bypasses them entirely.
	if number.Type != enums.NumberTypeExisting || number.PortInSkipped {
		return
	}
	requireNonEmpty(missing, "port_in_account_number", number.PortIn.AccountNumber)
	requireNonEmpty(missing, "port_in_pin", number.PortIn.PIN)
	requireNonEmpty(missing, "port_in_current_carrier", number.PortIn.CurrentCarrier)
	requireNonEmpty(missing, "port_in_account_holder_name", number.PortIn.AccountHolderName)
}

func requireNonEmpty(missing map[string]string, field, value string) {
	if strings.TrimSpace(value) == "" {
		missing[field] = "is required"
	}
}
