package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/assessflow/assessflow/engine"
	evalhttp "github.com/assessflow/assessflow/evaluator/http"
	"github.com/assessflow/assessflow/logkeys"
	"github.com/assessflow/assessflow/workflow"

	"github.com/micromdm/nanolib/log"
)

// evaluatorURLs collects repeated step=URL flags.
type evaluatorURLs map[workflow.Step]string

func (e *evaluatorURLs) String() string {
	if e == nil {
		return ""
	}
	var s []string
	for _, step := range workflow.Order {
		if url, ok := (*e)[step]; ok {
			s = append(s, string(step)+"="+url)
		}
	}
	return strings.Join(s, ",")
}

func (e *evaluatorURLs) Set(v string) error {
	step, url, ok := strings.Cut(v, "=")
	if !ok || url == "" {
		return errors.New("evaluator must be step=URL")
	}
	if !workflow.Step(step).Valid() {
		return fmt.Errorf("unknown step type: %s", step)
	}
	if *e == nil {
		*e = make(evaluatorURLs)
	}
	(*e)[workflow.Step(step)] = url
	return nil
}

// registerEvaluators registers an HTTP evaluator per configured step.
// Peer evaluators also report whether the submission was graded.
func registerEvaluators(logger log.Logger, e *engine.Engine, urls evaluatorURLs, apiKey string) error {
	var opts []evalhttp.Option
	if apiKey != "" {
		opts = append(opts, evalhttp.WithAPIKey(apiKey))
	}
	for step, url := range urls {
		var ev workflow.Evaluator
		if step == workflow.StepPeer {
			ev = evalhttp.NewGrading(step, url, opts...)
		} else {
			ev = evalhttp.New(step, url, opts...)
		}
		if err := e.RegisterEvaluator(step, ev); err != nil {
			return fmt.Errorf("registering evaluator for %s: %w", step, err)
		}
		logger.Debug(logkeys.Message, "registered evaluator", logkeys.StepName, step, "url", url)
	}
	return nil
}
