// Package catalog serves the device compatibility list and the plan lineup
// the wizard sells against. The catalog is loaded once from a JSON file and
// held in memory.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
)

// Device is one supported handset model.
type Device struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SupportsESIM bool   `json:"supports_esim"`
}

// Plan is one sellable rate plan.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	DataGB       int             `json:"data_gb"`
}

// Compatibility is the result of a device lookup.
type Compatibility struct {
	Compatible   bool `json:"compatible"`
	SupportsESIM bool `json:"supports_esim"`
}

type file struct {
	Devices []Device `json:"devices"`
	Plans   []Plan   `json:"plans"`
}

// Service answers catalog lookups.
type Service interface {
	Devices(ctx context.Context) []Device
	Plans(ctx context.Context) []Plan
	Check(ctx context.Context, brand, model string) Compatibility
}

type service struct {
	devices []Device
	plans   []Plan
	byKey   map[string]Device
}

// Load reads the catalog file and builds the lookup index.
func Load(path string) (Service, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var parsed file
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return New(parsed.Devices, parsed.Plans), nil
}

// New builds a catalog from in-memory data. Used directly in tests.
func New(devices []Device, plans []Plan) Service {
	byKey := make(map[string]Device, len(devices))
	for _, d := range devices {
		byKey[deviceKey(d.Brand, d.Model)] = d
	}
	return &service{devices: devices, plans: plans, byKey: byKey}
}

func (s *service) Devices(ctx context.Context) []Device {
	return s.devices
}

func (s *service) Plans(ctx context.Context) []Plan {
	return s.plans
}

// Check looks up a brand/model pair. Unknown devices come back incompatible
// rather than erroring; the wizard surfaces that as a validation failure.
func (s *service) Check(ctx context.Context, brand, model string) Compatibility {
	device, ok := s.byKey[deviceKey(brand, model)]
	if !ok {
		return Compatibility{}
	}
	return Compatibility{Compatible: true, SupportsESIM: device.SupportsESIM}
}

func deviceKey(brand, model string) string {
	return strings.ToLower(strings.TrimSpace(brand)) + "|" + strings.ToLower(strings.TrimSpace(model))
}

// RequireCompatible converts a lookup miss into a coded validation error.
func RequireCompatible(result Compatibility, brand, model string) error {
	if result.Compatible {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "device is not supported").
		WithDetails(map[string]any{"device_brand": brand, "device_model": model})
}
