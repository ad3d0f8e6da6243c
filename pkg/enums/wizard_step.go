package enums

import "fmt"

// WizardStep identifies one numbered stage of the order flow. StepNone is the
// pseudo-state for "not in an order" (home/dashboard).
type WizardStep int

const (
	StepNone                 WizardStep = 0
	StepContactInfo          WizardStep = 1
	StepDeviceCompatibility  WizardStep = 2
	StepSimSelection         WizardStep = 3
	StepNumberSelection      WizardStep = 4
	StepBillingInfo          WizardStep = 5
	StepNumberPortingOrSetup WizardStep = 6

	FirstStep = StepContactInfo
	FinalStep = StepNumberPortingOrSetup
)

var wizardStepNames = map[WizardStep]string{
	StepNone:                 "home",
	StepContactInfo:          "contact_info",
	StepDeviceCompatibility:  "device_compatibility",
	StepSimSelection:         "sim_selection",
	StepNumberSelection:      "number_selection",
	StepBillingInfo:          "billing_info",
	StepNumberPortingOrSetup: "number_porting_or_sim_setup",
}

// IsValid reports whether the step is one of the numbered wizard stages.
func (s WizardStep) IsValid() bool {
	return s >= FirstStep && s <= FinalStep
}

// String returns the canonical snake_case name used in logs and metrics.
func (s WizardStep) String() string {
	if name, ok := wizardStepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step_%d", int(s))
}

// ClampWizardStep coerces an arbitrary persisted step number into [FirstStep, FinalStep].
// Corrupted or future data resumes at the nearest legal stage.
func ClampWizardStep(value int) WizardStep {
	if value < int(FirstStep) {
		return FirstStep
	}
	if value > int(FinalStep) {
		return FinalStep
	}
	return WizardStep(value)
}
