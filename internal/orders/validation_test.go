package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
)

func validRecord() *OrderRecord {
	return &OrderRecord{
		Contact: ContactInfo{FirstName: "Maya", LastName: "Ortiz", PhoneNumber: "+15550100"},
		Device:  DeviceInfo{Brand: "Apple", Model: "iPhone 15"},
		SIM:     SIMInfo{Type: enums.SIMTypeESIM, IsForThisDevice: true},
		Number:  NumberInfo{Type: enums.NumberTypeNew},
		Billing: BillingInfo{
			CreditCardNumber: "4111 1111 1111 1111",
			BillingDetails:   "09/27",
			CVV:              "123",
			AgreedToTerms:    true,
			AgreedToAutopay:  true,
			AgreedToPrivacy:  true,
		},
	}
}

func assertValidationFails(t *testing.T, record *OrderRecord, step enums.WizardStep) {
	t.Helper()
	err := ValidateStep(record, step)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestValidateEveryStepOfAValidRecord(t *testing.T) {
	record := validRecord()
	for step := enums.FirstStep; step <= enums.FinalStep; step++ {
		assert.NoError(t, ValidateStep(record, step), step.String())
	}
}

func TestValidateContactInfo(t *testing.T) {
	record := validRecord()
	record.Contact.PhoneNumber = "   "
	assertValidationFails(t, record, enums.StepContactInfo)
}

func TestValidateDeviceStep(t *testing.T) {
	record := validRecord()
	record.Device.Model = ""
	assertValidationFails(t, record, enums.StepDeviceCompatibility)
}

func TestValidateSimStepRejectsUnknownType(t *testing.T) {
	record := validRecord()
	record.SIM.Type = "nano"
	assertValidationFails(t, record, enums.StepSimSelection)
}

func TestValidateNumberStepRequiresSelectionForExisting(t *testing.T) {
	record := validRecord()
	record.Number.Type = enums.NumberTypeExisting
	record.Number.SelectedPhoneNumber = ""
	assertValidationFails(t, record, enums.StepNumberSelection)

	record.Number.SelectedPhoneNumber = "+15550123"
	assert.NoError(t, ValidateStep(record, enums.StepNumberSelection))
}

func TestValidateBillingStep(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BillingInfo)
	}{
		{"short card", func(b *BillingInfo) { b.CreditCardNumber = "4111 1111 11" }},
		{"bad expiry month", func(b *BillingInfo) { b.BillingDetails = "13/27" }},
		{"expiry without slash", func(b *BillingInfo) { b.BillingDetails = "0927" }},
		{"short cvv", func(b *BillingInfo) { b.CVV = "12" }},
		{"terms not accepted", func(b *BillingInfo) { b.AgreedToTerms = false }},
		{"autopay not accepted", func(b *BillingInfo) { b.AgreedToAutopay = false }},
		{"privacy not accepted", func(b *BillingInfo) { b.AgreedToPrivacy = false }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := validRecord()
			tc.mutate(&record.Billing)
			assertValidationFails(t, record, enums.StepBillingInfo)
		})
	}
}

func TestValidateBillingAcceptsAmexLengthCard(t *testing.T) {
	record := validRecord()
	record.Billing.CreditCardNumber = "3782 822463 10005"
	assert.NoError(t, ValidateStep(record, enums.StepBillingInfo))
}

func TestValidatePortingStep(t *testing.T) {
	record := validRecord()
	record.Number.Type = enums.NumberTypeExisting
	record.Number.SelectedPhoneNumber = "+15550123"

	// All four transfer fields are required when porting.
	assertValidationFails(t, record, enums.StepNumberPortingOrSetup)

	record.Number.PortIn = PortInDetails{
		AccountNumber:     "ACC-9",
		PIN:               "0000",
		CurrentCarrier:    "Blue Mobile",
		AccountHolderName: "Maya Ortiz",
	}
	assert.NoError(t, ValidateStep(record, enums.StepNumberPortingOrSetup))
}

func TestValidatePortingStepHonorsSkip(t *testing.T) {
	record := validRecord()
	record.Number.Type = enums.NumberTypeExisting
	record.Number.SelectedPhoneNumber = "+15550123"
	record.Number.PortInSkipped = true

	assert.NoError(t, ValidateStep(record, enums.StepNumberPortingOrSetup))
}

func TestValidatePortingStepNewNumberNeedsNothing(t *testing.T) {
	record := validRecord()
	assert.NoError(t, ValidateStep(record, enums.StepNumberPortingOrSetup))
}

func TestValidateUnknownStep(t *testing.T) {
	err := ValidateStep(validRecord(), enums.StepNone)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
