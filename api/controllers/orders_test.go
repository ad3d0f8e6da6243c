package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telavo/activation-backend/api/middleware"
	internalorders "github.com/telavo/activation-backend/internal/orders"
	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/types"
)

type stubOrders struct {
	record    *internalorders.OrderRecord
	records   []*internalorders.OrderRecord
	result    *internalorders.StepResult
	err       error
	cancelled []string

	gotStep    enums.WizardStep
	gotPayload internalorders.StepPayload
}

func (s *stubOrders) StartNewOrder(ctx context.Context, userID string) (*internalorders.OrderRecord, error) {
	return s.record, s.err
}

func (s *stubOrders) ListOrders(ctx context.Context, userID string) ([]*internalorders.OrderRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.records != nil {
		return s.records, nil
	}
	return []*internalorders.OrderRecord{s.record}, nil
}

func (s *stubOrders) GetOrder(ctx context.Context, userID, orderID string) (*internalorders.OrderRecord, error) {
	return s.record, s.err
}

func (s *stubOrders) SaveStep(ctx context.Context, userID, orderID string, step enums.WizardStep, payload internalorders.StepPayload) (*internalorders.StepResult, error) {
	s.gotStep = step
	s.gotPayload = payload
	return s.result, s.err
}

func (s *stubOrders) Retreat(ctx context.Context, userID, orderID string) (*internalorders.StepResult, error) {
	return s.result, s.err
}

func (s *stubOrders) Cancel(ctx context.Context, userID, orderID string) error {
	s.cancelled = append(s.cancelled, orderID)
	return s.err
}

func (s *stubOrders) Resume(ctx context.Context, userID, orderID string) (*internalorders.StepResult, error) {
	return s.result, s.err
}

func (s *stubOrders) SkipPorting(ctx context.Context, userID, orderID string) (*internalorders.StepResult, error) {
	return s.result, s.err
}

func sampleRecord() *internalorders.OrderRecord {
	record := internalorders.NewDraft("o-1", "u-1", time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC))
	record.Billing.CreditCardNumber = "4111 1111 1111 1111"
	record.Billing.CVV = "123"
	return record
}

func doRequest(t *testing.T, handler http.HandlerFunc, method, target string, body []byte, params map[string]string, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := req.Context()
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestStartOrderRequiresAuth(t *testing.T) {
	svc := &stubOrders{record: sampleRecord()}
	w := doRequest(t, StartOrder(svc, nil), http.MethodPost, "/api/v1/orders", nil, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartOrderReturnsCreated(t *testing.T) {
	svc := &stubOrders{record: sampleRecord()}
	w := doRequest(t, StartOrder(svc, nil), http.MethodPost, "/api/v1/orders", nil, nil, "u-1")
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	data := envelope.Data.(map[string]any)
	assert.Equal(t, "o-1", data["order_id"])
	assert.Equal(t, float64(1), data["current_step"])
}

func TestListOrdersHonorsLimit(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := &stubOrders{records: []*internalorders.OrderRecord{
		internalorders.NewDraft("o-1", "u-1", now),
		internalorders.NewDraft("o-2", "u-1", now),
		internalorders.NewDraft("o-3", "u-1", now),
	}}

	w := doRequest(t, ListOrders(svc, nil), http.MethodGet, "/api/v1/orders?limit=2", nil, nil, "u-1")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	views := envelope.Data.([]any)
	require.Len(t, views, 2)
	assert.Equal(t, "o-1", views[0].(map[string]any)["order_id"])
}

func TestListOrdersRejectsBadLimit(t *testing.T) {
	svc := &stubOrders{record: sampleRecord()}

	w := doRequest(t, ListOrders(svc, nil), http.MethodGet, "/api/v1/orders?limit=many", nil, nil, "u-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, ListOrders(svc, nil), http.MethodGet, "/api/v1/orders?limit=0", nil, nil, "u-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderViewNeverExposesRawCard(t *testing.T) {
	svc := &stubOrders{record: sampleRecord()}
	w := doRequest(t, OrderDetail(svc, nil), http.MethodGet, "/api/v1/orders/o-1", nil,
		map[string]string{"orderID": "o-1"}, "u-1")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotContains(t, body, "4111 1111 1111 1111")
	assert.NotContains(t, body, `"cvv"`)
	assert.Contains(t, body, "**** 1111")
}

func TestSaveStepDecodesPayload(t *testing.T) {
	record := sampleRecord()
	svc := &stubOrders{
		record: record,
		result: &internalorders.StepResult{Record: record, NextStep: enums.StepDeviceCompatibility},
	}
	payload := []byte(`{"contact":{"first_name":"Maya","last_name":"Ortiz","phone_number":"+15550100"}}`)
	w := doRequest(t, SaveStep(svc, nil), http.MethodPost, "/api/v1/orders/o-1/steps/1", payload,
		map[string]string{"orderID": "o-1", "step": "1"}, "u-1")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, enums.StepContactInfo, svc.gotStep)
	require.NotNil(t, svc.gotPayload.Contact)
	assert.Equal(t, "Maya", svc.gotPayload.Contact.FirstName)
}

func TestSaveStepRejectsBadStepParam(t *testing.T) {
	svc := &stubOrders{}
	w := doRequest(t, SaveStep(svc, nil), http.MethodPost, "/api/v1/orders/o-1/steps/9", []byte(`{}`),
		map[string]string{"orderID": "o-1", "step": "9"}, "u-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, SaveStep(svc, nil), http.MethodPost, "/api/v1/orders/o-1/steps/abc", []byte(`{}`),
		map[string]string{"orderID": "o-1", "step": "abc"}, "u-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveStepRejectsUnknownSimType(t *testing.T) {
	svc := &stubOrders{}
	payload := []byte(`{"sim":{"type":"nano"}}`)
	w := doRequest(t, SaveStep(svc, nil), http.MethodPost, "/api/v1/orders/o-1/steps/3", payload,
		map[string]string{"orderID": "o-1", "step": "3"}, "u-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveStepMapsStateConflict(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order is on a different step")}
	w := doRequest(t, SaveStep(svc, nil), http.MethodPost, "/api/v1/orders/o-1/steps/2", []byte(`{}`),
		map[string]string{"orderID": "o-1", "step": "2"}, "u-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCancelOrder(t *testing.T) {
	svc := &stubOrders{}
	w := doRequest(t, CancelOrder(svc, nil), http.MethodPost, "/api/v1/orders/o-1/cancel", nil,
		map[string]string{"orderID": "o-1"}, "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"o-1"}, svc.cancelled)
}

func TestResumeMapsNotFound(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	w := doRequest(t, ResumeOrder(svc, nil), http.MethodGet, "/api/v1/orders/ghost/resume", nil,
		map[string]string{"orderID": "ghost"}, "u-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
