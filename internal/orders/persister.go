package orders

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/telavo/activation-backend/pkg/docstore"
	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/metrics"
)

// DestinationError records one failed write inside a fan-out save.
type DestinationError struct {
	Path string
	Err  error
}

func (d DestinationError) Error() string {
	return fmt.Sprintf("%s: %v", d.Path, d.Err)
}

func (d DestinationError) Unwrap() error {
	return d.Err
}

// StepPersister owns every document write and read for order records. A step
// save fans out to all destinations the step owns, waits for every write to
// settle, and reports all failures together. A partial failure leaves the
// successful writes in place; there is no rollback.
type StepPersister interface {
	CreateDraft(ctx context.Context, record *OrderRecord) error
	PersistStep(ctx context.Context, record *OrderRecord, step enums.WizardStep) error
	PersistFields(ctx context.Context, userID, orderID string, fields docstore.Fields) error
	Load(ctx context.Context, userID, orderID string) (*OrderRecord, error)
	LoadAll(ctx context.Context, userID string) ([]*OrderRecord, error)
	DeleteOrder(ctx context.Context, userID, orderID string) error
}

type persister struct {
	store     docstore.Store
	log       *logger.Logger
	metrics   *metrics.WizardMetrics
	opTimeout time.Duration
	now       func() time.Time
}

// NewStepPersister wires a persister over the document store. metrics may be
// nil; every other dependency is required.
func NewStepPersister(store docstore.Store, log *logger.Logger, wizardMetrics *metrics.WizardMetrics, opTimeout time.Duration) (StepPersister, error) {
	if store == nil {
		return nil, fmt.Errorf("docstore is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opTimeout <= 0 {
		return nil, fmt.Errorf("op timeout must be positive")
	}
	return &persister{
		store:     store,
		log:       log,
		metrics:   wizardMetrics,
		opTimeout: opTimeout,
		now:       time.Now,
	}, nil
}

type writeTarget struct {
	path   string
	fields docstore.Fields
}

// CreateDraft allocates a new order document and writes the initial draft
// fields. The allocated id is assigned onto the record.
func (p *persister) CreateDraft(ctx context.Context, record *OrderRecord) error {
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	orderID, err := p.store.Create(opCtx, docstore.OrdersCollection(record.UserID))
	if err != nil {
		return p.wrapStoreErr(err, "create order document")
	}
	record.OrderID = orderID

	path := docstore.OrderDoc(record.UserID, orderID)
	setCtx, cancelSet := context.WithTimeout(ctx, p.opTimeout)
	defer cancelSet()
	if err := p.store.Set(setCtx, path, record.DraftFields(), true); err != nil {
		return p.wrapStoreErr(err, "write draft order")
	}
	return nil
}

// PersistStep saves the step's field slice. Every step writes the order
// document; contact info additionally syncs the profile contact and shipping
// documents. The persisted current_step never moves unless every destination
// landed: a single-destination step folds the pointer into its one merge,
// while a fan-out step writes the data first and advances the pointer in a
// follow-up merge only after the barrier reports all-success. A failed save
// therefore always leaves the stored pointer where it was, and re-running the
// step is safe.
func (p *persister) PersistStep(ctx context.Context, record *OrderRecord, step enums.WizardStep) error {
	now := p.now().UTC()
	record.UpdatedAt = now

	pointerFields := docstore.Fields{
		fieldCurrentStep: int(record.CurrentStep),
		fieldUpdatedAt:   now.Format(time.RFC3339Nano),
	}
	orderFields := record.StepFields(step)
	orderFields[fieldUpdatedAt] = now.Format(time.RFC3339Nano)

	orderPath := docstore.OrderDoc(record.UserID, record.OrderID)
	fannedOut := step == enums.StepContactInfo
	if !fannedOut {
		for key, value := range pointerFields {
			orderFields[key] = value
		}
	}

	targets := []writeTarget{{path: orderPath, fields: orderFields}}
	if fannedOut {
		targets = append(targets,
			writeTarget{path: docstore.ContactDoc(record.UserID), fields: record.contactFields()},
			writeTarget{path: docstore.ShippingDoc(record.UserID), fields: record.shippingFields()},
		)
	}

	started := p.now()
	err := p.fanOut(ctx, targets)
	if err == nil && fannedOut {
		opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
		if setErr := p.store.Set(opCtx, orderPath, pointerFields, true); setErr != nil {
			err = p.wrapStoreErr(setErr, "advance step pointer")
		}
		cancel()
	}
	p.metrics.ObserveSave(step.String(), p.now().Sub(started))
	if err != nil {
		p.metrics.IncSaveFailure(step.String())
		p.log.Error(ctx, "step save failed", err)
		return err
	}
	p.metrics.IncSaveSuccess(step.String())
	return nil
}

// PersistFields merges an arbitrary field set into the order document. Used
// for lifecycle transitions outside the numbered steps, such as completion
// and the post-completion reset.
func (p *persister) PersistFields(ctx context.Context, userID, orderID string, fields docstore.Fields) error {
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	if err := p.store.Set(opCtx, docstore.OrderDoc(userID, orderID), fields, true); err != nil {
		return p.wrapStoreErr(err, "write order fields")
	}
	return nil
}

// Load fetches and decodes one order. An absent document yields CodeNotFound.
func (p *persister) Load(ctx context.Context, userID, orderID string) (*OrderRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	fields, err := p.store.Get(opCtx, docstore.OrderDoc(userID, orderID))
	if err != nil {
		return nil, p.wrapStoreErr(err, "read order document")
	}
	if fields == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return Decode(orderID, userID, fields), nil
}

// LoadAll lists every order document under the user, oldest first.
func (p *persister) LoadAll(ctx context.Context, userID string) ([]*OrderRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	docs, err := p.store.List(opCtx, docstore.OrdersCollection(userID))
	if err != nil {
		return nil, p.wrapStoreErr(err, "list order documents")
	}
	records := make([]*OrderRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, Decode(doc.ID, userID, doc.Fields))
	}
	return records, nil
}

// DeleteOrder removes the order document. Deleting an absent order succeeds.
func (p *persister) DeleteOrder(ctx context.Context, userID, orderID string) error {
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	if err := p.store.Delete(opCtx, docstore.OrderDoc(userID, orderID)); err != nil {
		return p.wrapStoreErr(err, "delete order document")
	}
	return nil
}

// fanOut issues every target write concurrently and waits for all of them.
// Failures are collected per destination; the aggregate carries CodeTimeout
// when any write timed out, CodeDependency otherwise.
func (p *persister) fanOut(ctx context.Context, targets []writeTarget) error {
	results := make([]error, len(targets))

	var group errgroup.Group
	for i, target := range targets {
		i, target := i, target
		group.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
			defer cancel()
			if err := p.store.Set(opCtx, target.path, target.fields, true); err != nil {
				results[i] = DestinationError{Path: target.path, Err: err}
			}
			return nil
		})
	}
	_ = group.Wait()

	var failures []DestinationError
	var combined error
	timedOut := false
	for _, res := range results {
		if res == nil {
			continue
		}
		var dest DestinationError
		stderrors.As(res, &dest)
		failures = append(failures, dest)
		combined = multierr.Append(combined, res)
		if stderrors.Is(dest.Err, context.DeadlineExceeded) {
			timedOut = true
		}
	}
	if combined == nil {
		return nil
	}

	paths := make([]string, 0, len(failures))
	for _, f := range failures {
		paths = append(paths, f.Path)
	}
	code := pkgerrors.CodeDependency
	if timedOut {
		code = pkgerrors.CodeTimeout
	}
	return pkgerrors.Wrap(code, combined, "step save did not reach every destination").
		WithDetails(map[string]any{"destinations": paths})
}

func (p *persister) wrapStoreErr(err error, action string) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, action+" timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action+" failed")
}
