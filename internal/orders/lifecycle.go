package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telavo/activation-backend/internal/catalog"
	"github.com/telavo/activation-backend/internal/cleanup"
	"github.com/telavo/activation-backend/internal/profiles"
	"github.com/telavo/activation-backend/internal/wizard"
	"github.com/telavo/activation-backend/pkg/docstore"
	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/metrics"
	"github.com/telavo/activation-backend/pkg/types"
)

// NumberSelection is the step-4 payload slice.
type NumberSelection struct {
	Type                enums.NumberType
	SelectedPhoneNumber string
}

// StepPayload carries the client's input for one step save. Only the slice
// matching the step is read; the rest stay nil. SkipPort is never accepted
// here; SkipPorting is the one way to skip the port-in form.
type StepPayload struct {
	Contact  *ContactInfo
	Shipping *types.Address
	Device   *DeviceInfo
	SIM      *SIMInfo
	Number   *NumberSelection
	Billing  *BillingInfo
	PortIn   *PortInDetails
	SkipPort bool
}

// StepResult reports where the wizard stands after an operation.
type StepResult struct {
	Record    *OrderRecord
	NextStep  enums.WizardStep
	Completed bool
	Phase     wizard.Phase
}

// Service coordinates the order lifecycle: draft creation, step saves,
// retreats, cancellation, resume and completion. Saves for the same order are
// mutually exclusive; saves for different orders run independently.
type Service interface {
	StartNewOrder(ctx context.Context, userID string) (*OrderRecord, error)
	ListOrders(ctx context.Context, userID string) ([]*OrderRecord, error)
	GetOrder(ctx context.Context, userID, orderID string) (*OrderRecord, error)
	SaveStep(ctx context.Context, userID, orderID string, step enums.WizardStep, payload StepPayload) (*StepResult, error)
	Retreat(ctx context.Context, userID, orderID string) (*StepResult, error)
	Cancel(ctx context.Context, userID, orderID string) error
	Resume(ctx context.Context, userID, orderID string) (*StepResult, error)
	SkipPorting(ctx context.Context, userID, orderID string) (*StepResult, error)
}

type coordinator struct {
	persister StepPersister
	profiles  profiles.Service
	catalog   catalog.Service
	cleanup   cleanup.Queue
	log       *logger.Logger
	metrics   *metrics.WizardMetrics
	locks     *orderLocks
	now       func() time.Time
}

// NewService wires the coordinator. cleanupQueue and wizardMetrics may be
// nil; without a queue a failed cancel delete is logged and dropped.
func NewService(
	persister StepPersister,
	profileSvc profiles.Service,
	catalogSvc catalog.Service,
	cleanupQueue cleanup.Queue,
	log *logger.Logger,
	wizardMetrics *metrics.WizardMetrics,
) (Service, error) {
	if persister == nil {
		return nil, fmt.Errorf("step persister is required")
	}
	if profileSvc == nil {
		return nil, fmt.Errorf("profiles service is required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &coordinator{
		persister: persister,
		profiles:  profileSvc,
		catalog:   catalogSvc,
		cleanup:   cleanupQueue,
		log:       log,
		metrics:   wizardMetrics,
		locks:     newOrderLocks(),
		now:       time.Now,
	}, nil
}

// StartNewOrder creates a draft seeded from the user's profile defaults. The
// seed is copied once at creation; later profile edits do not touch drafts.
func (c *coordinator) StartNewOrder(ctx context.Context, userID string) (*OrderRecord, error) {
	record := NewDraft("", userID, c.now().UTC())

	profile, err := c.profiles.Get(ctx, userID)
	switch {
	case err == nil:
		record.Contact = ContactInfo{
			FirstName:   profile.Contact.FirstName,
			LastName:    profile.Contact.LastName,
			PhoneNumber: profile.Contact.PhoneNumber,
			Email:       profile.Contact.Email,
		}
		record.Shipping = profile.Shipping
	case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
		// First order for a brand-new user; the draft starts blank.
	default:
		return nil, err
	}

	if err := c.persister.CreateDraft(ctx, record); err != nil {
		return nil, err
	}
	c.log.Info(c.log.WithOrderID(c.log.WithUserID(ctx, userID), record.OrderID), "order draft created")
	return record, nil
}

// ListOrders returns the user's orders minus cancelled ones, which may linger
// as documents until the cleanup worker's delete lands.
func (c *coordinator) ListOrders(ctx context.Context, userID string) ([]*OrderRecord, error) {
	records, err := c.persister.LoadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible := records[:0]
	for _, record := range records {
		if record.Status == enums.OrderStatusCancelled {
			continue
		}
		visible = append(visible, record)
	}
	return visible, nil
}

func (c *coordinator) GetOrder(ctx context.Context, userID, orderID string) (*OrderRecord, error) {
	return c.persister.Load(ctx, userID, orderID)
}

// SaveStep validates and persists one step, then moves the pointer forward.
// The pointer only advances when every destination write succeeds; a failed
// save leaves the order at its current step. A successful final step
// completes the order.
func (c *coordinator) SaveStep(ctx context.Context, userID, orderID string, step enums.WizardStep, payload StepPayload) (*StepResult, error) {
	unlock := c.locks.lock(userID, orderID)
	defer unlock()

	ctx = c.log.WithStep(c.log.WithOrderID(c.log.WithUserID(ctx, userID), orderID), int(step))

	record, err := c.persister.Load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := c.requireEditable(record); err != nil {
		return nil, err
	}
	if step != record.CurrentStep {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is on a different step").
			WithDetails(map[string]any{"current_step": int(record.CurrentStep), "requested_step": int(step)})
	}
	// Skipping the port-in form is its own operation with its own outcome
	// (the order stays pending); a step save must not smuggle it in.
	if payload.SkipPort {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "porting skip is a separate operation").
			WithDetails(map[string]any{"field": "skip_porting"})
	}

	if err := c.applyPayload(ctx, record, step, payload); err != nil {
		return nil, err
	}
	if err := ValidateStep(record, step); err != nil {
		return nil, err
	}

	next, err := wizard.Advance(step)
	if err != nil {
		return nil, err
	}

	completed := next == enums.StepNone
	if completed {
		record.CurrentStep = enums.FinalStep
	} else {
		record.CurrentStep = next
	}
	if err := c.persister.PersistStep(ctx, record, step); err != nil {
		return nil, err
	}

	if completed {
		if err := c.complete(ctx, record); err != nil {
			return nil, err
		}
	}

	result := &StepResult{Record: record, NextStep: next, Completed: completed}
	if next == enums.FinalStep {
		result.Phase = wizard.FinalStepPhase(record.Number.Type)
	}
	return result, nil
}

// applyPayload copies the step's slice of client input onto the record and
// runs the step's side rules.
func (c *coordinator) applyPayload(ctx context.Context, record *OrderRecord, step enums.WizardStep, payload StepPayload) error {
	switch step {
	case enums.StepContactInfo:
		if payload.Contact != nil {
			record.Contact = *payload.Contact
		}
		if payload.Shipping != nil {
			record.Shipping = *payload.Shipping
		}
	case enums.StepDeviceCompatibility:
		if payload.Device != nil {
			record.Device = DeviceInfo{Brand: payload.Device.Brand, Model: payload.Device.Model, IMEI: payload.Device.IMEI}
		}
		result := c.catalog.Check(ctx, record.Device.Brand, record.Device.Model)
		if err := catalog.RequireCompatible(result, record.Device.Brand, record.Device.Model); err != nil {
			return err
		}
		record.Device.IsCompatible = true
	case enums.StepSimSelection:
		if payload.SIM != nil {
			record.SIM = *payload.SIM
		}
		record.NormalizeSIM()
	case enums.StepNumberSelection:
		if payload.Number != nil {
			record.Number.Type = payload.Number.Type
			record.Number.SelectedPhoneNumber = payload.Number.SelectedPhoneNumber
		}
	case enums.StepBillingInfo:
		if payload.Billing != nil {
			record.Billing = *payload.Billing
		}
	case enums.StepNumberPortingOrSetup:
		if payload.PortIn != nil {
			record.Number.PortIn = *payload.PortIn
		}
	}
	return nil
}

// complete marks the order completed and stamps the completion date. The
// in-memory record is then reset so the caller's session lands back on home
// with no residual wizard state.
func (c *coordinator) complete(ctx context.Context, record *OrderRecord) error {
	completedAt := c.now().UTC()
	fields := docstore.Fields{
		fieldStatus:         string(enums.OrderStatusCompleted),
		fieldCompletionDate: completedAt.Format(time.RFC3339Nano),
		fieldUpdatedAt:      completedAt.Format(time.RFC3339Nano),
	}
	if err := c.persister.PersistFields(ctx, record.UserID, record.OrderID, fields); err != nil {
		return err
	}
	record.Status = enums.OrderStatusCompleted
	record.OrderCompletionDate = &completedAt
	record.ResetOrderFields()
	c.metrics.IncCompleted()
	c.log.Info(ctx, "order completed")
	return nil
}

// Retreat moves the pointer back one step without touching step data, so the
// values reappear pre-filled when the user moves forward again.
func (c *coordinator) Retreat(ctx context.Context, userID, orderID string) (*StepResult, error) {
	unlock := c.locks.lock(userID, orderID)
	defer unlock()

	record, err := c.persister.Load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := c.requireEditable(record); err != nil {
		return nil, err
	}

	prev, err := wizard.Retreat(record.CurrentStep)
	if err != nil {
		return nil, err
	}

	record.CurrentStep = prev
	record.UpdatedAt = c.now().UTC()
	fields := docstore.Fields{
		fieldCurrentStep: int(prev),
		fieldUpdatedAt:   record.UpdatedAt.Format(time.RFC3339Nano),
	}
	if err := c.persister.PersistFields(ctx, userID, orderID, fields); err != nil {
		return nil, err
	}
	return &StepResult{Record: record, NextStep: prev}, nil
}

// Cancel abandons an in-progress order and deletes its document. Cancelling
// an already-deleted order succeeds. When the delete itself fails the user
// still proceeds home; the delete is queued for the background worker.
func (c *coordinator) Cancel(ctx context.Context, userID, orderID string) error {
	unlock := c.locks.lock(userID, orderID)
	defer unlock()

	ctx = c.log.WithOrderID(c.log.WithUserID(ctx, userID), orderID)

	record, err := c.persister.Load(ctx, userID, orderID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if record.Status == enums.OrderStatusCancelled {
		// Already cancelled; the document is waiting on the background delete.
		return nil
	}
	if record.Status == enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "completed orders cannot be cancelled")
	}
	if err := wizard.CanCancel(record.CurrentStep); err != nil {
		return err
	}

	if err := c.persister.DeleteOrder(ctx, userID, orderID); err != nil {
		c.log.Error(ctx, "order delete failed, queueing cleanup", err)
		c.markCancelled(ctx, userID, orderID)
		c.enqueueCleanup(ctx, userID, orderID)
	}
	c.metrics.IncCancelled()
	c.log.Info(ctx, "order cancelled")
	return nil
}

// markCancelled flags a document whose delete failed so it stops showing up
// in lists and resumes while it waits for the background delete. Best effort:
// the store just failed a delete, so this write may fail too.
func (c *coordinator) markCancelled(ctx context.Context, userID, orderID string) {
	fields := docstore.Fields{
		fieldStatus:    string(enums.OrderStatusCancelled),
		fieldUpdatedAt: c.now().UTC().Format(time.RFC3339Nano),
	}
	if err := c.persister.PersistFields(ctx, userID, orderID, fields); err != nil {
		c.log.Error(ctx, "cancelled status write failed", err)
	}
}

func (c *coordinator) enqueueCleanup(ctx context.Context, userID, orderID string) {
	if c.cleanup == nil {
		return
	}
	task := cleanup.Task{UserID: userID, OrderID: orderID, EnqueuedAt: c.now().UTC()}
	if err := c.cleanup.Enqueue(ctx, task); err != nil {
		c.log.Error(ctx, "cleanup enqueue failed", err)
	}
}

// Resume reopens an in-progress order at its persisted step. Unknown orders
// are CodeNotFound; completed and cancelled orders cannot be reopened.
func (c *coordinator) Resume(ctx context.Context, userID, orderID string) (*StepResult, error) {
	record, err := c.persister.Load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "closed orders cannot be resumed").
			WithDetails(map[string]any{"status": string(record.Status)})
	}

	step := wizard.Resume(int(record.CurrentStep))
	record.CurrentStep = step
	result := &StepResult{Record: record, NextStep: step}
	if step == enums.FinalStep {
		result.Phase = wizard.FinalStepPhase(record.Number.Type)
	}
	return result, nil
}

// SkipPorting records an explicit skip of the port-in form and sends the user
// home. The order stays pending so support can finish the transfer later.
func (c *coordinator) SkipPorting(ctx context.Context, userID, orderID string) (*StepResult, error) {
	unlock := c.locks.lock(userID, orderID)
	defer unlock()

	record, err := c.persister.Load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := c.requireEditable(record); err != nil {
		return nil, err
	}
	if record.CurrentStep != enums.FinalStep || record.Number.Type != enums.NumberTypeExisting {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "nothing to skip at this step").
			WithDetails(map[string]any{"current_step": int(record.CurrentStep)})
	}

	record.Number.PortInSkipped = true
	record.Status = enums.OrderStatusPending
	record.UpdatedAt = c.now().UTC()
	fields := docstore.Fields{
		fieldPortInSkipped: true,
		fieldStatus:        string(enums.OrderStatusPending),
		fieldUpdatedAt:     record.UpdatedAt.Format(time.RFC3339Nano),
	}
	if err := c.persister.PersistFields(ctx, userID, orderID, fields); err != nil {
		return nil, err
	}
	return &StepResult{Record: record, NextStep: enums.StepNone}, nil
}

func (c *coordinator) requireEditable(record *OrderRecord) error {
	if record.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer editable").
			WithDetails(map[string]any{"status": string(record.Status)})
	}
	return nil
}

// orderLocks hands out one mutex per order key and reclaims entries once the
// last holder releases them.
type orderLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newOrderLocks() *orderLocks {
	return &orderLocks{entries: map[string]*lockEntry{}}
}

func (l *orderLocks) lock(userID, orderID string) func() {
	key := userID + "/" + orderID

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
