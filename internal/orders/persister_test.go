package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telavo/activation-backend/pkg/docstore"
	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/logger"
)

// faultyStore wraps the in-memory store and fails Set for selected paths.
type faultyStore struct {
	docstore.Store
	failSet map[string]error
}

func (s *faultyStore) Set(ctx context.Context, path string, fields docstore.Fields, merge bool) error {
	if err, ok := s.failSet[path]; ok {
		return err
	}
	return s.Store.Set(ctx, path, fields, merge)
}

func newTestPersister(t *testing.T, store docstore.Store) StepPersister {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	p, err := NewStepPersister(store, log, nil, time.Second)
	require.NoError(t, err)
	return p
}

func seedOrder(t *testing.T, p StepPersister, userID string) *OrderRecord {
	t.Helper()
	record := NewDraft("", userID, time.Now().UTC())
	require.NoError(t, p.CreateDraft(context.Background(), record))
	require.NotEmpty(t, record.OrderID)
	return record
}

func TestCreateDraftAndLoad(t *testing.T) {
	p := newTestPersister(t, docstore.NewMemory())
	record := seedOrder(t, p, "u-1")

	loaded, err := p.Load(context.Background(), "u-1", record.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, loaded.Status)
	assert.Equal(t, enums.FirstStep, loaded.CurrentStep)
}

func TestLoadMissingOrder(t *testing.T) {
	p := newTestPersister(t, docstore.NewMemory())

	_, err := p.Load(context.Background(), "u-1", "ghost")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestPersistStepOneFansOutToProfileDocs(t *testing.T) {
	store := docstore.NewMemory()
	p := newTestPersister(t, store)
	record := seedOrder(t, p, "u-1")

	record.Contact = ContactInfo{FirstName: "Maya", LastName: "Ortiz", PhoneNumber: "+15550100"}
	record.Shipping.City = "Oakland"
	record.CurrentStep = enums.StepDeviceCompatibility
	require.NoError(t, p.PersistStep(context.Background(), record, enums.StepContactInfo))

	ctx := context.Background()
	contact, err := store.Get(ctx, docstore.ContactDoc("u-1"))
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "Maya", contact.String("first_name"))

	shipping, err := store.Get(ctx, docstore.ShippingDoc("u-1"))
	require.NoError(t, err)
	require.NotNil(t, shipping)
	assert.Equal(t, "Oakland", shipping.String("city"))

	order, err := store.Get(ctx, docstore.OrderDoc("u-1", record.OrderID))
	require.NoError(t, err)
	assert.Equal(t, int(enums.StepDeviceCompatibility), order.Int("current_step"))
}

func TestPersistStepLeavesPartialWritesInPlace(t *testing.T) {
	memory := docstore.NewMemory()
	p := newTestPersister(t, memory)
	record := seedOrder(t, p, "u-1")

	store := &faultyStore{
		Store: memory,
		failSet: map[string]error{
			docstore.ShippingDoc("u-1"): fmt.Errorf("backend unavailable"),
		},
	}
	p = newTestPersister(t, store)

	record.Contact = ContactInfo{FirstName: "Maya", LastName: "Ortiz", PhoneNumber: "+15550100"}
	record.CurrentStep = enums.StepDeviceCompatibility
	err := p.PersistStep(context.Background(), record, enums.StepContactInfo)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{docstore.ShippingDoc("u-1")}, details["destinations"])

	// The successful writes stay; there is no rollback.
	contact, getErr := memory.Get(context.Background(), docstore.ContactDoc("u-1"))
	require.NoError(t, getErr)
	require.NotNil(t, contact)
	assert.Equal(t, "Maya", contact.String("first_name"))

	// The stored pointer must not advance while any destination is failing,
	// otherwise re-running the step would be rejected as a step mismatch.
	order, getErr := memory.Get(context.Background(), docstore.OrderDoc("u-1", record.OrderID))
	require.NoError(t, getErr)
	assert.Equal(t, int(enums.StepContactInfo), order.Int("current_step"))
}

// pointerFailStore lets the fan-out data writes through but fails the
// order-document merge that carries the step pointer.
type pointerFailStore struct {
	docstore.Store
	orderPath string
}

func (s *pointerFailStore) Set(ctx context.Context, path string, fields docstore.Fields, merge bool) error {
	if path == s.orderPath {
		if _, ok := fields[fieldCurrentStep]; ok {
			return fmt.Errorf("backend unavailable")
		}
	}
	return s.Store.Set(ctx, path, fields, merge)
}

func TestPersistStepReportsFailedPointerAdvance(t *testing.T) {
	memory := docstore.NewMemory()
	p := newTestPersister(t, memory)
	record := seedOrder(t, p, "u-1")

	store := &pointerFailStore{Store: memory, orderPath: docstore.OrderDoc("u-1", record.OrderID)}
	p = newTestPersister(t, store)

	record.Contact = ContactInfo{FirstName: "Maya", LastName: "Ortiz", PhoneNumber: "+15550100"}
	record.CurrentStep = enums.StepDeviceCompatibility
	err := p.PersistStep(context.Background(), record, enums.StepContactInfo)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	order, getErr := memory.Get(context.Background(), docstore.OrderDoc("u-1", record.OrderID))
	require.NoError(t, getErr)
	assert.Equal(t, int(enums.StepContactInfo), order.Int("current_step"))
}

func TestPersistStepMapsTimeouts(t *testing.T) {
	memory := docstore.NewMemory()
	p := newTestPersister(t, memory)
	record := seedOrder(t, p, "u-1")

	store := &faultyStore{
		Store: memory,
		failSet: map[string]error{
			docstore.OrderDoc("u-1", record.OrderID): fmt.Errorf("write: %w", context.DeadlineExceeded),
		},
	}
	p = newTestPersister(t, store)

	record.Device = DeviceInfo{Brand: "Apple", Model: "iPhone 15"}
	err := p.PersistStep(context.Background(), record, enums.StepDeviceCompatibility)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTimeout))
}

func TestDeleteOrderIsIdempotent(t *testing.T) {
	p := newTestPersister(t, docstore.NewMemory())
	record := seedOrder(t, p, "u-1")

	require.NoError(t, p.DeleteOrder(context.Background(), "u-1", record.OrderID))
	require.NoError(t, p.DeleteOrder(context.Background(), "u-1", record.OrderID))

	_, err := p.Load(context.Background(), "u-1", record.OrderID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestLoadAllListsInCreationOrder(t *testing.T) {
	p := newTestPersister(t, docstore.NewMemory())
	first := seedOrder(t, p, "u-1")
	second := seedOrder(t, p, "u-1")

	records, err := p.LoadAll(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.OrderID, records[0].OrderID)
	assert.Equal(t, second.OrderID, records[1].OrderID)
}
