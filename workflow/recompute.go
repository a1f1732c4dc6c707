package workflow

// Results answers per-step satisfaction questions for Recompute.
// Details implements Results.
type Results interface {
	Satisfied(Step) bool
	Graded(Step) bool
}

// Recompute derives the next status of a workflow.
//
// steps are the configured steps in Order. Only steps in req are
// considered; the walk starts at current and never visits a step before
// it. The first required step that is not satisfied becomes the status.
// If none remain the status is waiting until every required step is
// graded, then done.
//
// Terminal statuses are returned unchanged. Recompute performs no I/O.
func Recompute(current Status, steps []Step, req Requirements, r Results) Status {
	if current.Terminal() {
		return current
	}
	pos := current.position()
	if pos < 0 {
		return current
	}
	for _, s := range steps {
		if s.index() < pos || !req.Required(s) {
			continue
		}
		if !r.Satisfied(s) {
			return Status(s)
		}
	}
	for _, s := range steps {
		if req.Required(s) && !r.Graded(s) {
			return StatusWaiting
		}
	}
	return StatusDone
}

// InitialStatus returns the status of a newly created workflow for the
// configured steps: the first of steps in Order.
func InitialStatus(steps []Step) (Status, bool) {
	for _, o := range Order {
		for _, s := range steps {
			if s == o {
				return Status(s), true
			}
		}
	}
	return "", false
}

// ConfiguredOrder filters Order down to the steps in configured.
func ConfiguredOrder(configured func(Step) bool) (steps []Step) {
	for _, s := range Order {
		if configured(s) {
			steps = append(steps, s)
		}
	}
	return
}
