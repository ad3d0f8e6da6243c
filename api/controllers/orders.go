package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/telavo/activation-backend/api/middleware"
	"github.com/telavo/activation-backend/api/responses"
	"github.com/telavo/activation-backend/api/validators"
	"github.com/telavo/activation-backend/internal/orders"
	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/types"
)

const (
	defaultOrderListLimit = 50
	maxOrderListLimit     = 200
)

type stepRequest struct {
	Contact  *contactBody `json:"contact,omitempty"`
	Shipping *addressBody `json:"shipping,omitempty"`
	Device   *deviceBody  `json:"device,omitempty"`
	SIM      *simBody     `json:"sim,omitempty"`
	Number   *numberBody  `json:"number,omitempty"`
	Billing  *billingBody `json:"billing,omitempty"`
	PortIn   *portInBody  `json:"port_in,omitempty"`
	SkipPort bool         `json:"skip_porting,omitempty"`
}

type contactBody struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type addressBody struct {
	Street    string `json:"street"`
	AptNumber string `json:"apt_number"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

type deviceBody struct {
	Brand string `json:"brand" validate:"required,max=60"`
	Model string `json:"model" validate:"required,max=120"`
	IMEI  string `json:"imei" validate:"omitempty,max=20"`
}

type simBody struct {
	Type            string `json:"type" validate:"required"`
	IsForThisDevice bool   `json:"is_for_this_device"`
}

type numberBody struct {
	Type                string `json:"type" validate:"required"`
	SelectedPhoneNumber string `json:"selected_phone_number"`
}

type billingBody struct {
	CreditCardNumber string       `json:"credit_card_number" validate:"required"`
	BillingDetails   string       `json:"billing_details" validate:"required"`
	CVV              string       `json:"cvv" validate:"required"`
	Address          *addressBody `json:"address,omitempty"`
	Country          string       `json:"country"`
	AgreedToTerms    bool         `json:"agreed_to_terms"`
	AgreedToAutopay  bool         `json:"agreed_to_autopay"`
	AgreedToPrivacy  bool         `json:"agreed_to_privacy"`
}

type portInBody struct {
	AccountNumber     string `json:"account_number"`
	PIN               string `json:"pin"`
	CurrentCarrier    string `json:"current_carrier"`
	AccountHolderName string `json:"account_holder_name"`
}

type orderView struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`
	StepName    string `json:"step_name"`

	Contact  contactBody `json:"contact"`
	Shipping addressBody `json:"shipping"`
	Device   struct {
		Brand        string `json:"brand"`
		Model        string `json:"model"`
		IMEI         string `json:"imei"`
		IsCompatible bool   `json:"is_compatible"`
	} `json:"device"`
	SIM struct {
		Type            string `json:"type"`
		IsForThisDevice bool   `json:"is_for_this_device"`
		ShowQRCode      bool   `json:"show_qr_code"`
	} `json:"sim"`
	Number struct {
		Type                string `json:"type"`
		SelectedPhoneNumber string `json:"selected_phone_number"`
		PortInSkipped       bool   `json:"port_in_skipped"`
	} `json:"number"`
	Billing struct {
		MaskedCard      string `json:"masked_card"`
		Country         string `json:"country"`
		AgreedToTerms   bool   `json:"agreed_to_terms"`
		AgreedToAutopay bool   `json:"agreed_to_autopay"`
		AgreedToPrivacy bool   `json:"agreed_to_privacy"`
	} `json:"billing"`

	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	OrderCompletionDate *time.Time `json:"order_completion_date,omitempty"`
}

type stepView struct {
	Order     orderView `json:"order"`
	NextStep  int       `json:"next_step"`
	Completed bool      `json:"completed"`
	Phase     string    `json:"phase,omitempty"`
}

func toOrderView(record *orders.OrderRecord) orderView {
	view := orderView{
		OrderID:     record.OrderID,
		Status:      string(record.Status),
		CurrentStep: int(record.CurrentStep),
		StepName:    record.CurrentStep.String(),
		Contact: contactBody{
			FirstName:   record.Contact.FirstName,
			LastName:    record.Contact.LastName,
			PhoneNumber: record.Contact.PhoneNumber,
			Email:       record.Contact.Email,
		},
		Shipping: addressBody{
			Street:    record.Shipping.Street,
			AptNumber: record.Shipping.AptNumber,
			City:      record.Shipping.City,
			State:     record.Shipping.State,
			Zip:       record.Shipping.Zip,
			Country:   record.Shipping.Country,
		},
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
		OrderCompletionDate: record.OrderCompletionDate,
	}
	view.Device.Brand = record.Device.Brand
	view.Device.Model = record.Device.Model
	view.Device.IMEI = record.Device.IMEI
	view.Device.IsCompatible = record.Device.IsCompatible
	view.SIM.Type = string(record.SIM.Type)
	view.SIM.IsForThisDevice = record.SIM.IsForThisDevice
	view.SIM.ShowQRCode = record.SIM.ShowQRCode
	view.Number.Type = string(record.Number.Type)
	view.Number.SelectedPhoneNumber = record.Number.SelectedPhoneNumber
	view.Number.PortInSkipped = record.Number.PortInSkipped
	// The card number never leaves the service unmasked and the CVV never
	// leaves at all.
	view.Billing.MaskedCard = record.Billing.MaskedCard()
	view.Billing.Country = record.Billing.Country
	view.Billing.AgreedToTerms = record.Billing.AgreedToTerms
	view.Billing.AgreedToAutopay = record.Billing.AgreedToAutopay
	view.Billing.AgreedToPrivacy = record.Billing.AgreedToPrivacy
	return view
}

func toStepView(result *orders.StepResult) stepView {
	return stepView{
		Order:     toOrderView(result.Record),
		NextStep:  int(result.NextStep),
		Completed: result.Completed,
		Phase:     string(result.Phase),
	}
}

func requireUser(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return userID, nil
}

// StartOrder creates a fresh draft seeded from the caller's profile.
func StartOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.StartNewOrder(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderView(record))
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultOrderListLimit, 1, maxOrderListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.ListOrders(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(records) > limit {
			records = records[:limit]
		}
		views := make([]orderView, 0, len(records))
		for _, record := range records {
			views = append(views, toOrderView(record))
		}
		responses.WriteSuccess(w, views)
	}
}

func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetOrder(r.Context(), userID, chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderView(record))
	}
}

// SaveStep persists one wizard step and advances the pointer.
func SaveStep(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		step, err := parseStep(chi.URLParam(r, "step"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stepRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := toPayload(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SaveStep(r.Context(), userID, chi.URLParam(r, "orderID"), step, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toStepView(result))
	}
}

func Retreat(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Retreat(r.Context(), userID, chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toStepView(result))
	}
}

func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), userID, chi.URLParam(r, "orderID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func ResumeOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Resume(r.Context(), userID, chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toStepView(result))
	}
}

func SkipPorting(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SkipPorting(r.Context(), userID, chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toStepView(result))
	}
}

func parseStep(raw string) (enums.WizardStep, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "step must be numeric").
			WithDetails(map[string]any{"step": raw})
	}
	step := enums.WizardStep(value)
	if !step.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "step out of range").
			WithDetails(map[string]any{"step": value})
	}
	return step, nil
}

func toPayload(body stepRequest) (orders.StepPayload, error) {
	payload := orders.StepPayload{SkipPort: body.SkipPort}

	if body.Contact != nil {
		payload.Contact = &orders.ContactInfo{
			FirstName:   validators.SanitizeString(body.Contact.FirstName, 100),
			LastName:    validators.SanitizeString(body.Contact.LastName, 100),
			PhoneNumber: validators.SanitizeString(body.Contact.PhoneNumber, 32),
			Email:       validators.SanitizeString(body.Contact.Email, 254),
		}
	}
	if body.Shipping != nil {
		payload.Shipping = &types.Address{
			Street:    body.Shipping.Street,
			AptNumber: body.Shipping.AptNumber,
			City:      body.Shipping.City,
			State:     body.Shipping.State,
			Zip:       body.Shipping.Zip,
			Country:   body.Shipping.Country,
		}
	}
	if body.Device != nil {
		payload.Device = &orders.DeviceInfo{
			Brand: validators.SanitizeString(body.Device.Brand, 60),
			Model: validators.SanitizeString(body.Device.Model, 120),
			IMEI:  validators.SanitizeString(body.Device.IMEI, 20),
		}
	}
	if body.SIM != nil {
		simType, err := enums.ParseSIMType(body.SIM.Type)
		if err != nil {
			return payload, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sim type")
		}
		payload.SIM = &orders.SIMInfo{Type: simType, IsForThisDevice: body.SIM.IsForThisDevice}
	}
	if body.Number != nil {
		numberType, err := enums.ParseNumberType(body.Number.Type)
		if err != nil {
			return payload, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid number type")
		}
		payload.Number = &orders.NumberSelection{
			Type:                numberType,
			SelectedPhoneNumber: validators.SanitizeString(body.Number.SelectedPhoneNumber, 32),
		}
	}
	if body.Billing != nil {
		billing := &orders.BillingInfo{
			CreditCardNumber: body.Billing.CreditCardNumber,
			BillingDetails:   body.Billing.BillingDetails,
			CVV:              body.Billing.CVV,
			Country:          body.Billing.Country,
			AgreedToTerms:    body.Billing.AgreedToTerms,
			AgreedToAutopay:  body.Billing.AgreedToAutopay,
			AgreedToPrivacy:  body.Billing.AgreedToPrivacy,
		}
		if body.Billing.Address != nil {
			billing.Address = types.Address{
				Street:    body.Billing.Address.Street,
				AptNumber: body.Billing.Address.AptNumber,
				City:      body.Billing.Address.City,
				State:     body.Billing.Address.State,
				Zip:       body.Billing.Address.Zip,
				Country:   body.Billing.Address.Country,
			}
		}
		payload.Billing = billing
	}
	if body.PortIn != nil {
		payload.PortIn = &orders.PortInDetails{
			AccountNumber:     body.PortIn.AccountNumber,
			PIN:               body.PortIn.PIN,
			CurrentCarrier:    body.PortIn.CurrentCarrier,
			AccountHolderName: body.PortIn.AccountHolderName,
		}
	}
	return payload, nil
}
