package controllers

import (
	"net/http"

	"github.com/telavo/activation-backend/api/middleware"
	"github.com/telavo/activation-backend/api/responses"
	"github.com/telavo/activation-backend/api/validators"
	"github.com/telavo/activation-backend/internal/profiles"
	"github.com/telavo/activation-backend/pkg/enums"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/types"
)

type contactUpdateRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type shippingUpdateRequest struct {
	Street    string `json:"street" validate:"required,max=200"`
	AptNumber string `json:"apt_number" validate:"max=20"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=60"`
	Zip       string `json:"zip" validate:"required,max=16"`
	Country   string `json:"country" validate:"max=60"`
}

func GetProfile(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		accountType, err := enums.ParseAccountType(middleware.AccountTypeFromContext(r.Context()))
		if err != nil {
			accountType = enums.AccountTypePersonal
		}
		if err := svc.EnsureUser(r.Context(), userID, accountType); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func UpdateContact(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body contactUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contact := profiles.Contact{
			FirstName:   validators.SanitizeString(body.FirstName, 100),
			LastName:    validators.SanitizeString(body.LastName, 100),
			PhoneNumber: validators.SanitizeString(body.PhoneNumber, 32),
			Email:       validators.SanitizeString(body.Email, 254),
		}
		if err := svc.UpdateContact(r.Context(), userID, contact); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func UpdateShipping(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body shippingUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipping := types.Address{
			Street:    body.Street,
			AptNumber: body.AptNumber,
			City:      body.City,
			State:     body.State,
			Zip:       body.Zip,
			Country:   body.Country,
		}
		if err := svc.UpdateShipping(r.Context(), userID, shipping); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipping)
	}
}
