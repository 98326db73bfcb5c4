package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
)

type progressSpinner interface {
	Stop() error
	Success(...any)
	Fail(...any)
	UpdateText(string)
}

type progressSpinnerFactory func(string) (progressSpinner, error)

var defaultSpinnerFactory progressSpinnerFactory = func(text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithRemoveWhenDone(false).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// StepStatus represents the state of a progress step.
type StepStatus int

const (
	// StepPending indicates a step has not yet started.
	StepPending StepStatus = iota
	// StepRunning indicates a step is currently in progress.
	StepRunning
	// StepCompleted indicates a step finished successfully.
	StepCompleted
	// StepFailed indicates a step encountered an error.
	StepFailed
)

// Step is a single line of progress output.
type Step struct {
	ID          string
	Message     string
	Status      StepStatus
	IndentLevel int
	startTime   time.Time
}

// ProgressManager shows a fixed list of steps, animating the running one with a spinner.
type ProgressManager struct {
	steps          map[string]*Step
	out            io.Writer
	currentSpinner progressSpinner
	spinnerFactory progressSpinnerFactory
	mu             sync.Mutex
	disabled       bool
}

// ProgressManagerOption allows customizing ProgressManager behavior at creation time.
type ProgressManagerOption func(*ProgressManager)

// WithProgressOutput enables or disables terminal output for a ProgressManager.
func WithProgressOutput(enabled bool) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.disabled = !enabled
	}
}

func withProgressSpinnerFactory(factory progressSpinnerFactory) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.spinnerFactory = factory
	}
}

// NewProgressManager creates a ProgressManager writing to out with all steps registered upfront.
func NewProgressManager(out io.Writer, steps []*Step, opts ...ProgressManagerOption) *ProgressManager {
	pterm.Success.Prefix = pterm.Prefix{
		Text:  "✓",
		Style: pterm.NewStyle(pterm.FgGreen),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "✗",
		Style: pterm.NewStyle(pterm.FgRed),
	}
	pterm.DefaultSpinner.Style = pterm.NewStyle(pterm.FgCyan)

	pm := &ProgressManager{
		steps:          make(map[string]*Step, len(steps)),
		out:            out,
		spinnerFactory: defaultSpinnerFactory,
	}
	for _, step := range steps {
		pm.steps[step.ID] = step
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

func getPrefix(step *Step) string {
	if step.IndentLevel == 0 {
		return ""
	}
	return strings.Repeat("  ", step.IndentLevel) + "→ "
}

func (pm *ProgressManager) step(stepID string) (*Step, error) {
	step, ok := pm.steps[stepID]
	if !ok {
		return nil, errors.Errorf("step %q not found", stepID)
	}
	return step, nil
}

// Start begins the given step. Top level steps print a line; nested steps get a spinner.
func (pm *ProgressManager) Start(stepID string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, err := pm.step(stepID)
	if err != nil {
		return err
	}
	step.Status = StepRunning
	step.startTime = time.Now()
	if pm.disabled {
		return nil
	}

	if step.IndentLevel == 0 {
		printf(pm.out, " …  %s", step.Message)
		return nil
	}
	if pm.currentSpinner != nil {
		//nolint:errcheck
		_ = pm.currentSpinner.Stop()
	}
	spinner, err := pm.spinnerFactory(" " + getPrefix(step) + step.Message)
	if err != nil {
		return errors.Wrap(err, "failed to start spinner")
	}
	pm.currentSpinner = spinner
	return nil
}

// Complete marks a step as completed.
func (pm *ProgressManager) Complete(stepID string) error {
	return pm.CompleteWithMessage(stepID, "")
}

// CompleteWithMessage marks a step as completed, replacing its message when message is set.
func (pm *ProgressManager) CompleteWithMessage(stepID, message string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, err := pm.step(stepID)
	if err != nil {
		return err
	}
	step.Status = StepCompleted
	if pm.disabled {
		return nil
	}
	if message == "" {
		message = step.Message
	}
	if !step.startTime.IsZero() {
		message += fmt.Sprintf(" (%s)", time.Since(step.startTime).Round(time.Millisecond))
	}
	if pm.currentSpinner != nil {
		pm.currentSpinner.Success(" " + getPrefix(step) + message)
		pm.currentSpinner = nil
		return nil
	}
	pterm.Success.Println(getPrefix(step) + message)
	return nil
}

// Fail marks a step as failed.
func (pm *ProgressManager) Fail(stepID string, cause error) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, err := pm.step(stepID)
	if err != nil {
		return err
	}
	step.Status = StepFailed
	if pm.disabled {
		return nil
	}
	message := fmt.Sprintf("%s: %v", step.Message, cause)
	if pm.currentSpinner != nil {
		pm.currentSpinner.Fail(" " + getPrefix(step) + message)
		pm.currentSpinner = nil
		return nil
	}
	pterm.Error.Println(getPrefix(step) + message)
	return nil
}

// UpdateText updates the text of the running spinner.
func (pm *ProgressManager) UpdateText(text string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.disabled || pm.currentSpinner == nil {
		return
	}
	pm.currentSpinner.UpdateText(text)
}

// Stop stops any running spinner.
func (pm *ProgressManager) Stop() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.disabled || pm.currentSpinner == nil {
		return
	}
	//nolint:errcheck
	_ = pm.currentSpinner.Stop()
	pm.currentSpinner = nil
}
