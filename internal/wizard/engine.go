// Package wizard holds the pure state machine for the six-step activation
// flow. It rules on which transitions are legal; it never touches storage.
package wizard

import (
	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
)

// Phase names the sub-flow the final step runs for a given number choice.
type Phase string

const (
	PhasePortIn   Phase = "port_in"
	PhaseSimSetup Phase = "sim_setup"
)

// FinalStepPhase reports which sub-flow step 6 presents. Transferring an
// existing number collects port-in credentials; a new number goes straight
// to SIM setup.
func FinalStepPhase(numberType enums.NumberType) Phase {
	if numberType == enums.NumberTypeExisting {
		return PhasePortIn
	}
	return PhaseSimSetup
}

// Advance rules on moving forward from current. The final step advances to
// StepNone, which the caller treats as order completion.
func Advance(current enums.WizardStep) (enums.WizardStep, error) {
	if !current.IsValid() {
		return enums.StepNone, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot advance outside the wizard").
			WithDetails(map[string]any{"current_step": int(current)})
	}
	if current == enums.FinalStep {
		return enums.StepNone, nil
	}
	return current + 1, nil
}

// Retreat rules on moving back one step. Only steps 2 through 5 may retreat:
// the first step has nothing behind it and the final step is committed to
// its number choice.
func Retreat(current enums.WizardStep) (enums.WizardStep, error) {
	if current <= enums.FirstStep || current >= enums.FinalStep {
		return current, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot retreat from this step").
			WithDetails(map[string]any{"current_step": int(current)})
	}
	return current - 1, nil
}

// CanCancel reports whether an order sitting at current may be cancelled.
// Cancellation is legal on steps 1 through 5; the final step has already
// committed the order.
func CanCancel(current enums.WizardStep) error {
	if current < enums.FirstStep || current >= enums.FinalStep {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel at this step").
			WithDetails(map[string]any{"current_step": int(current)})
	}
	return nil
}

// Resume coerces a persisted step pointer into a presentable stage.
func Resume(persisted int) enums.WizardStep {
	return enums.ClampWizardStep(persisted)
}
