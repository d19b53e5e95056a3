package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/rendis/sagaline/internal/logging"
	"github.com/rendis/sagaline/pkg/saga"
)

const exploratorySystemPrompt = `You are an exploratory test evaluator. You receive one step of a saga
(its intent, instruction and expected result) together with the execution
trace the step produced. Judge whether the observed behavior satisfies the
step's intent.

Respond with a single JSON object and nothing else:
{"verdict": "passed" | "blocked", "assessment": "<free-form judgement>", "gaps": ["<unmet expectation>", ...]}

Use "blocked" when the trace does not demonstrate the expected behavior or
is too thin to judge. List every unmet expectation in "gaps"; leave it empty
when the verdict is "passed".`

// llmVerdict is the wire shape of the model's reply.
type llmVerdict struct {
	Verdict    string   `json:"verdict"`
	Assessment string   `json:"assessment"`
	Gaps       []string `json:"gaps"`
}

// ExploratoryEvaluator judges exploratory steps with an LLM. The model reads
// the step's intent and the execution trace and returns a structured verdict.
type ExploratoryEvaluator struct {
	model  llms.Model
	logger *slog.Logger
}

// NewExploratoryEvaluator creates an LLM-assisted evaluator over the given model.
func NewExploratoryEvaluator(model llms.Model, logger *slog.Logger) *ExploratoryEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExploratoryEvaluator{model: model, logger: logger}
}

// Assess invokes the model and maps its verdict to a step verdict. The reason
// code is always LLM_ASSESSMENT_COMPLETED, distinguishing "evaluated and
// found lacking" from the not-evaluated sentinel codes. Model or decode
// failures are returned as errors for the orchestrator to map to blocked.
func (e *ExploratoryEvaluator) Assess(ctx context.Context, step *saga.Step, actor *saga.Actor, trace *Trace) (*StepVerdict, error) {
	prompt, err := buildAssessmentPrompt(step, actor, trace)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(exploratorySystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	resp, err := e.model.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return nil, saga.NewErrorf(saga.ErrCodeEvaluator,
			"exploratory assessment for step %q: %s", step.StepKey, err.Error()).
			WithStep(step.StepKey).WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return nil, saga.NewErrorf(saga.ErrCodeEvaluator,
			"exploratory assessment for step %q returned no choices", step.StepKey).
			WithStep(step.StepKey)
	}

	verdict, err := decodeVerdict(resp.Choices[0].Content)
	if err != nil {
		return nil, saga.NewErrorf(saga.ErrCodeEvaluator,
			"decode exploratory verdict for step %q: %s", step.StepKey, err.Error()).
			WithStep(step.StepKey).WithCause(err)
	}

	status := saga.StepStatusBlocked
	failureMessage := ""
	if verdict.Verdict == "passed" {
		status = saga.StepStatusPassed
	} else if len(verdict.Gaps) > 0 {
		failureMessage = verdict.Gaps[0]
	} else {
		failureMessage = verdict.Assessment
	}

	logging.LogWith(ctx, e.logger).InfoContext(ctx, "exploratory assessment complete",
		slog.String("verdict", verdict.Verdict),
		slog.Int("gaps", len(verdict.Gaps)))

	return &StepVerdict{
		Status: status,
		Payload: &saga.ResultPayload{
			Evidence: &saga.EvidenceOutcome{
				Kind:       saga.OutcomeKindExploratory,
				ReasonCode: saga.ReasonLLMAssessmentCompleted,
				Gaps:       verdict.Gaps,
				Assessment: verdict.Assessment,
			},
		},
		FailureMessage: failureMessage,
	}, nil
}

// buildAssessmentPrompt renders the step and trace as the human message.
func buildAssessmentPrompt(step *saga.Step, actor *saga.Actor, trace *Trace) (string, error) {
	traceJSON, err := json.MarshalIndent(trace.AsMap(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal trace: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Step: %s\n", step.StepKey)
	if step.Intent != "" {
		fmt.Fprintf(&b, "Intent: %s\n", step.Intent)
	}
	if step.Instruction != "" {
		fmt.Fprintf(&b, "Instruction: %s\n", step.Instruction)
	}
	if step.ExpectedResult != "" {
		fmt.Fprintf(&b, "Expected result: %s\n", step.ExpectedResult)
	}
	if actor != nil {
		fmt.Fprintf(&b, "Acting as: %s (%s)\n", actor.Name, actor.Role)
	}
	fmt.Fprintf(&b, "\nExecution trace:\n%s\n", traceJSON)
	return b.String(), nil
}

// decodeVerdict parses the model reply, tolerating prose around the JSON
// object and a missing verdict field (treated as blocked).
func decodeVerdict(content string) (*llmVerdict, error) {
	raw := strings.TrimSpace(content)
	if start := strings.Index(raw, "{"); start > 0 {
		raw = raw[start:]
	}
	if end := strings.LastIndex(raw, "}"); end >= 0 {
		raw = raw[:end+1]
	}

	v := &llmVerdict{}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return nil, err
	}
	if v.Verdict != "passed" {
		v.Verdict = "blocked"
	}
	return v, nil
}
