package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
)

func testCatalog() Service {
	return New(
		[]Device{
			{Brand: "Apple", Model: "iPhone 15", SupportsESIM: true},
			{Brand: "Samsung", Model: "Galaxy S24", SupportsESIM: true},
			{Brand: "Nokia", Model: "3310", SupportsESIM: false},
		},
		[]Plan{
			{ID: "unlimited", Name: "Unlimited", MonthlyPrice: decimal.NewFromInt(45), DataGB: 0},
			{ID: "basic-5", Name: "Basic 5GB", MonthlyPrice: decimal.RequireFromString("22.50"), DataGB: 5},
		},
	)
}

func TestCheckKnownDevice(t *testing.T) {
	svc := testCatalog()

	result := svc.Check(context.Background(), "Apple", "iPhone 15")
	assert.True(t, result.Compatible)
	assert.True(t, result.SupportsESIM)

	result = svc.Check(context.Background(), "Nokia", "3310")
	assert.True(t, result.Compatible)
	assert.False(t, result.SupportsESIM)
}

func TestCheckIsCaseAndSpaceInsensitive(t *testing.T) {
	svc := testCatalog()

	result := svc.Check(context.Background(), "  apple ", "IPHONE 15")
	assert.True(t, result.Compatible)
}

func TestCheckUnknownDevice(t *testing.T) {
	svc := testCatalog()

	result := svc.Check(context.Background(), "Fairphone", "5")
	assert.False(t, result.Compatible)

	err := RequireCompatible(result, "Fairphone", "5")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `{
		"devices": [{"brand": "Apple", "model": "iPhone 15", "supports_esim": true}],
		"plans": [{"id": "unlimited", "name": "Unlimited", "monthly_price": "45", "data_gb": 0}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	svc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, svc.Devices(context.Background()), 1)
	require.Len(t, svc.Plans(context.Background()), 1)
	assert.True(t, decimal.NewFromInt(45).Equal(svc.Plans(context.Background())[0].MonthlyPrice))
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
