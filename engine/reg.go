package engine

import (
	"errors"
	"fmt"

	"github.com/assessflow/assessflow/logkeys"
	"github.com/assessflow/assessflow/workflow"
)

var ErrNilEvaluator = errors.New("nil evaluator")

// RegisterEvaluator associates ev with step.
// Registered steps are the steps a workflow may require.
func (e *Engine) RegisterEvaluator(step workflow.Step, ev workflow.Evaluator) error {
	if !step.Valid() {
		return fmt.Errorf("registering evaluator: unknown step type: %s", step)
	}
	if ev == nil {
		return ErrNilEvaluator
	}
	e.evaluatorsMu.Lock()
	defer e.evaluatorsMu.Unlock()
	e.evaluators[step] = ev
	_, grader := ev.(workflow.Grader)
	e.logger.Debug(logkeys.Message, "registered evaluator", logkeys.StepName, step, "grader", grader)
	return nil
}

// UnregisterEvaluator dissociates the evaluator from step.
func (e *Engine) UnregisterEvaluator(step workflow.Step) error {
	e.evaluatorsMu.Lock()
	defer e.evaluatorsMu.Unlock()
	if _, ok := e.evaluators[step]; ok {
		delete(e.evaluators, step)
		e.logger.Debug(logkeys.Message, "unregistered evaluator", logkeys.StepName, step)
	} else {
		e.logger.Info(
			logkeys.Message, "unregistered evaluator",
			logkeys.StepName, step,
			logkeys.Error, "step not registered",
		)
	}
	return nil
}

// Evaluator returns the registered evaluator for step.
func (e *Engine) Evaluator(step workflow.Step) workflow.Evaluator {
	e.evaluatorsMu.RLock()
	defer e.evaluatorsMu.RUnlock()
	return e.evaluators[step]
}

// StepRegistered returns true if an evaluator is registered for step.
func (e *Engine) StepRegistered(step workflow.Step) bool {
	e.evaluatorsMu.RLock()
	defer e.evaluatorsMu.RUnlock()
	_, ok := e.evaluators[step]
	return ok
}

// Steps returns the registered steps in the fixed evaluation order.
func (e *Engine) Steps() []workflow.Step {
	e.evaluatorsMu.RLock()
	defer e.evaluatorsMu.RUnlock()
	return workflow.ConfiguredOrder(func(s workflow.Step) bool {
		_, ok := e.evaluators[s]
		return ok
	})
}

// stepEvaluators returns a consistent view of the steps and evaluators.
func (e *Engine) stepEvaluators() ([]workflow.Step, map[workflow.Step]workflow.Evaluator) {
	e.evaluatorsMu.RLock()
	defer e.evaluatorsMu.RUnlock()
	evs := make(map[workflow.Step]workflow.Evaluator, len(e.evaluators))
	for k, v := range e.evaluators {
		evs[k] = v
	}
	return workflow.ConfiguredOrder(func(s workflow.Step) bool {
		_, ok := evs[s]
		return ok
	}), evs
}
