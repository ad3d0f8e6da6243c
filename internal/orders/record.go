package orders

import (
	"strings"
	"time"

	"github.com/telavo/activation-backend/pkg/docstore"
	"github.com/telavo/activation-backend/pkg/enums"
	"github.com/telavo/activation-backend/pkg/types"
)

// OrderRecord is the aggregate for one in-progress or completed activation
// order. Every wizard step owns a slice of its fields; the whole aggregate
// lives on a single order document.
type OrderRecord struct {
	OrderID string
	UserID  string
	Status  enums.OrderStatus

	Contact  ContactInfo
	Shipping types.Address
	Device   DeviceInfo
	SIM      SIMInfo
	Number   NumberInfo
	Billing  BillingInfo

	CurrentStep         enums.WizardStep
	CreatedAt           time.Time
	UpdatedAt           time.Time
	OrderCompletionDate *time.Time
}

// ContactInfo holds the step-1 contact fields.
type ContactInfo struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
}

// DeviceInfo holds the step-2 device fields.
type DeviceInfo struct {
	Brand        string
	Model        string
	IMEI         string
	IsCompatible bool
}

// SIMInfo holds the step-3 SIM provisioning fields.
type SIMInfo struct {
	Type            enums.SIMType
	IsForThisDevice bool
	ShowQRCode      bool
}

// PortInDetails carries the carrier transfer credentials collected at step 6.
type PortInDetails struct {
	AccountNumber     string
	PIN               string
	CurrentCarrier    string
	AccountHolderName string
}

// NumberInfo holds the step-4 number selection plus the step-6 porting state.
type NumberInfo struct {
	Type                enums.NumberType
	SelectedPhoneNumber string
	PortIn              PortInDetails
	PortInSkipped       bool
}

// BillingInfo holds the step-5 payment fields. The card number is stored as
// collected; MaskedCard is the only representation surfaced to clients.
type BillingInfo struct {
	CreditCardNumber string
	BillingDetails   string // expiry, MM/YY
	CVV              string
	Address          types.Address
	Country          string

	AgreedToTerms   bool
	AgreedToAutopay bool
	AgreedToPrivacy bool
}

// MaskedCard returns the card number reduced to its last four digits.
func (b BillingInfo) MaskedCard() string {
	digits := cardDigits(b.CreditCardNumber)
	if len(digits) < 4 {
		return ""
	}
	return "**** " + digits[len(digits)-4:]
}

func cardDigits(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// NormalizeSIM applies the provisioning rule that an eSIM activated for a
// different device must surface its QR code.
func (r *OrderRecord) NormalizeSIM() {
	if r.SIM.Type == enums.SIMTypeESIM && !r.SIM.IsForThisDevice {
		r.SIM.ShowQRCode = true
	}
}

// Document field names on the order document.
const (
	fieldOrderID             = "order_id"
	fieldUserID              = "user_id"
	fieldStatus              = "status"
	fieldFirstName           = "first_name"
	fieldLastName            = "last_name"
	fieldPhoneNumber         = "phone_number"
	fieldEmail               = "email"
	fieldStreet              = "street"
	fieldAptNumber           = "apt_number"
	fieldCity                = "city"
	fieldState               = "state"
	fieldZip                 = "zip"
	fieldCountry             = "country"
	fieldDeviceBrand         = "device_brand"
	fieldDeviceModel         = "device_model"
	fieldIMEI                = "imei"
	fieldDeviceIsCompatible  = "device_is_compatible"
	fieldSIMType             = "sim_type"
	fieldIsForThisDevice     = "is_for_this_device"
	fieldShowQRCode          = "show_qr_code"
	fieldNumberType          = "number_type"
	fieldSelectedPhoneNumber = "selected_phone_number"
	fieldPortInAccountNumber = "port_in_account_number"
	fieldPortInPIN           = "port_in_pin"
	fieldPortInCarrier       = "port_in_current_carrier"
	fieldPortInHolderName    = "port_in_account_holder_name"
	fieldPortInSkipped       = "port_in_skipped"
	fieldCardNumber          = "credit_card_number"
	fieldBillingDetails      = "billing_details"
	fieldCVV                 = "cvv"
	fieldBillingStreet       = "billing_street"
	fieldBillingCity         = "billing_city"
	fieldBillingState        = "billing_state"
	fieldBillingZip          = "billing_zip"
	fieldBillingCountry      = "billing_country"
	fieldAgreedToTerms       = "agreed_to_terms"
	fieldAgreedToAutopay     = "agreed_to_autopay"
	fieldAgreedToPrivacy     = "agreed_to_privacy"
	fieldCurrentStep         = "current_step"
	fieldCreatedAt           = "created_at"
	fieldUpdatedAt           = "updated_at"
	fieldCompletionDate      = "order_completion_date"
)

// NewDraft builds the initial draft aggregate for a freshly created order.
func NewDraft(orderID, userID string, now time.Time) *OrderRecord {
	return &OrderRecord{
		OrderID:     orderID,
		UserID:      userID,
		Status:      enums.OrderStatusDraft,
		CurrentStep: enums.FirstStep,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DraftFields encodes the initial draft document written at order creation.
func (r *OrderRecord) DraftFields() docstore.Fields {
	fields := docstore.Fields{
		fieldOrderID:     r.OrderID,
		fieldUserID:      r.UserID,
		fieldStatus:      string(r.Status),
		fieldCurrentStep: int(r.CurrentStep),
		fieldCreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	// Profile defaults seeded copy-on-create land in the draft document too.
	docstore.Merge(fields, r.contactFields())
	docstore.Merge(fields, r.shippingFields())
	return fields
}

// StepFields encodes the field subset owned by step for a merge write
// against the order document.
func (r *OrderRecord) StepFields(step enums.WizardStep) docstore.Fields {
	fields := docstore.Fields{}
	switch step {
	case enums.StepContactInfo:
		docstore.Merge(fields, r.contactFields())
		docstore.Merge(fields, r.shippingFields())
	case enums.StepDeviceCompatibility:
		fields[fieldDeviceBrand] = r.Device.Brand
		fields[fieldDeviceModel] = r.Device.Model
		fields[fieldIMEI] = r.Device.IMEI
		fields[fieldDeviceIsCompatible] = r.Device.IsCompatible
	case enums.StepSimSelection:
		fields[fieldSIMType] = string(r.SIM.Type)
		fields[fieldIsForThisDevice] = r.SIM.IsForThisDevice
		fields[fieldShowQRCode] = r.SIM.ShowQRCode
	case enums.StepNumberSelection:
		fields[fieldNumberType] = string(r.Number.Type)
		fields[fieldSelectedPhoneNumber] = r.Number.SelectedPhoneNumber
	case enums.StepBillingInfo:
		fields[fieldCardNumber] = r.Billing.CreditCardNumber
		fields[fieldBillingDetails] = r.Billing.BillingDetails
		fields[fieldCVV] = r.Billing.CVV
		fields[fieldBillingStreet] = r.Billing.Address.Street
		fields[fieldBillingCity] = r.Billing.Address.City
		fields[fieldBillingState] = r.Billing.Address.State
		fields[fieldBillingZip] = r.Billing.Address.Zip
		fields[fieldBillingCountry] = r.Billing.Country
		fields[fieldAgreedToTerms] = r.Billing.AgreedToTerms
		fields[fieldAgreedToAutopay] = r.Billing.AgreedToAutopay
		fields[fieldAgreedToPrivacy] = r.Billing.AgreedToPrivacy
	case enums.StepNumberPortingOrSetup:
		fields[fieldPortInAccountNumber] = r.Number.PortIn.AccountNumber
		fields[fieldPortInPIN] = r.Number.PortIn.PIN
		fields[fieldPortInCarrier] = r.Number.PortIn.CurrentCarrier
		fields[fieldPortInHolderName] = r.Number.PortIn.AccountHolderName
		fields[fieldPortInSkipped] = r.Number.PortInSkipped
	}
	return fields
}

func (r *OrderRecord) contactFields() docstore.Fields {
	return docstore.Fields{
		fieldFirstName:   r.Contact.FirstName,
		fieldLastName:    r.Contact.LastName,
		fieldPhoneNumber: r.Contact.PhoneNumber,
		fieldEmail:       r.Contact.Email,
	}
}

func (r *OrderRecord) shippingFields() docstore.Fields {
	return docstore.Fields{
		fieldStreet:    r.Shipping.Street,
		fieldAptNumber: r.Shipping.AptNumber,
		fieldCity:      r.Shipping.City,
		fieldState:     r.Shipping.State,
		fieldZip:       r.Shipping.Zip,
		fieldCountry:   r.Shipping.Country,
	}
}

// Decode reconstructs an OrderRecord from a persisted order document.
func Decode(orderID, userID string, fields docstore.Fields) *OrderRecord {
	record := &OrderRecord{
		OrderID: orderID,
		UserID:  userID,
		Status:  enums.OrderStatus(fields.String(fieldStatus)),
		Contact: ContactInfo{
			FirstName:   fields.String(fieldFirstName),
			LastName:    fields.String(fieldLastName),
			PhoneNumber: fields.String(fieldPhoneNumber),
			Email:       fields.String(fieldEmail),
		},
		Shipping: types.Address{
			Street:    fields.String(fieldStreet),
			AptNumber: fields.String(fieldAptNumber),
			City:      fields.String(fieldCity),
			State:     fields.String(fieldState),
			Zip:       fields.String(fieldZip),
			Country:   fields.String(fieldCountry),
		},
		Device: DeviceInfo{
			Brand:        fields.String(fieldDeviceBrand),
			Model:        fields.String(fieldDeviceModel),
			IMEI:         fields.String(fieldIMEI),
			IsCompatible: fields.Bool(fieldDeviceIsCompatible),
		},
		SIM: SIMInfo{
			Type:            enums.SIMType(fields.String(fieldSIMType)),
			IsForThisDevice: fields.Bool(fieldIsForThisDevice),
			ShowQRCode:      fields.Bool(fieldShowQRCode),
		},
		Number: NumberInfo{
			Type:                enums.NumberType(fields.String(fieldNumberType)),
			SelectedPhoneNumber: fields.String(fieldSelectedPhoneNumber),
			PortIn: PortInDetails{
				AccountNumber:     fields.String(fieldPortInAccountNumber),
				PIN:               fields.String(fieldPortInPIN),
				CurrentCarrier:    fields.String(fieldPortInCarrier),
				AccountHolderName: fields.String(fieldPortInHolderName),
			},
			PortInSkipped: fields.Bool(fieldPortInSkipped),
		},
		Billing: BillingInfo{
			CreditCardNumber: fields.String(fieldCardNumber),
			BillingDetails:   fields.String(fieldBillingDetails),
			CVV:              fields.String(fieldCVV),
			Address: types.Address{
				Street: fields.String(fieldBillingStreet),
				City:   fields.String(fieldBillingCity),
				State:  fields.String(fieldBillingState),
				Zip:    fields.String(fieldBillingZip),
			},
			Country:         fields.String(fieldBillingCountry),
			AgreedToTerms:   fields.Bool(fieldAgreedToTerms),
			AgreedToAutopay: fields.Bool(fieldAgreedToAutopay),
			AgreedToPrivacy: fields.Bool(fieldAgreedToPrivacy),
		},
		CurrentStep: enums.ClampWizardStep(fields.Int(fieldCurrentStep)),
		CreatedAt:   fields.Time(fieldCreatedAt),
		UpdatedAt:   fields.Time(fieldUpdatedAt),
	}

	if completion := fields.Time(fieldCompletionDate); !completion.IsZero() {
		record.OrderCompletionDate = &completion
	}
	return record
}

// ResetOrderFields clears every step-owned field while preserving identity
// and timestamps. Used for the hard reset after completion, which also drops
// fields an in-session reset would keep, such as the number type.
func (r *OrderRecord) ResetOrderFields() {
	r.Contact = ContactInfo{}
	r.Shipping = types.Address{}
	r.Device = DeviceInfo{}
	r.SIM = SIMInfo{}
	r.Number = NumberInfo{}
	r.Billing = BillingInfo{}
	r.CurrentStep = enums.StepNone
}
