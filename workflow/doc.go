// Package workflow defines the assessment workflow state machine.
//
// A workflow tracks a single submission through an ordered sequence of
// assessment steps. Its status is never stored as the result of a single
// event; it is re-derived by Recompute from the currently required steps
// and what each step's Evaluator reports.
//
// Status only advances along Order (then to waiting, then to done). The
// done and cancelled statuses are terminal.
package workflow
