package controllers

import (
	"net/http"
	"strings"

	"github.com/telavo/activation-backend/api/responses"
	"github.com/telavo/activation-backend/internal/catalog"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/logger"
)

func ListDevices(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Devices(r.Context()))
	}
}

func ListPlans(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Plans(r.Context()))
	}
}

// CheckDevice answers the compatibility probe the device step runs before
// submitting.
func CheckDevice(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brand := strings.TrimSpace(r.URL.Query().Get("brand"))
		model := strings.TrimSpace(r.URL.Query().Get("model"))
		if brand == "" || model == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "brand and model are required"))
			return
		}
		responses.WriteSuccess(w, svc.Check(r.Context(), brand, model))
	}
}
