package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/rendis/sagaline/pkg/saga"
)

// fakeModel returns a canned reply and records the messages it was given.
type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.reply}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func exploratoryStep() *saga.Step {
	return &saga.Step{
		StepKey:        "uc-need-validate-signup",
		ActorKey:       "buyer",
		Class:          saga.StepClassExploratory,
		Intent:         "a new visitor can sign up",
		Instruction:    "complete the signup form with plausible data",
		ExpectedResult: "account created and welcome screen shown",
	}
}

func TestAssess_Passed(t *testing.T) {
	model := &fakeModel{reply: `{"verdict": "passed", "assessment": "signup completed as intended", "gaps": []}`}
	e := NewExploratoryEvaluator(model, nil)

	verdict, err := e.Assess(context.Background(), exploratoryStep(), nil, &Trace{OK: true})
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusPassed, verdict.Status)
	assert.Equal(t, saga.ReasonLLMAssessmentCompleted, verdict.Payload.Evidence.ReasonCode)
	assert.Equal(t, "signup completed as intended", verdict.Payload.Evidence.Assessment)
	assert.Empty(t, verdict.FailureMessage)
}

func TestAssess_BlockedWithGaps(t *testing.T) {
	model := &fakeModel{reply: `{"verdict": "blocked", "assessment": "form submitted but no account visible", "gaps": ["welcome screen never rendered", "no confirmation email in trace"]}`}
	e := NewExploratoryEvaluator(model, nil)

	verdict, err := e.Assess(context.Background(), exploratoryStep(), nil, &Trace{OK: true})
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusBlocked, verdict.Status)
	assert.Equal(t, saga.ReasonLLMAssessmentCompleted, verdict.Payload.Evidence.ReasonCode)
	assert.Equal(t, "welcome screen never rendered", verdict.FailureMessage, "first gap becomes the failure message")
	assert.Len(t, verdict.Payload.Evidence.Gaps, 2)
}

func TestAssess_BlockedWithoutGapsUsesAssessment(t *testing.T) {
	model := &fakeModel{reply: `{"verdict": "blocked", "assessment": "trace too thin to judge"}`}
	e := NewExploratoryEvaluator(model, nil)

	verdict, err := e.Assess(context.Background(), exploratoryStep(), nil, &Trace{OK: true})
	require.NoError(t, err)
	assert.Equal(t, saga.StepStatusBlocked, verdict.Status)
	assert.Equal(t, "trace too thin to judge", verdict.FailureMessage)
}

func TestAssess_PromptCarriesStepAndTrace(t *testing.T) {
	model := &fakeModel{reply: `{"verdict": "passed"}`}
	e := NewExploratoryEvaluator(model, nil)

	actor := &saga.Actor{ActorKey: "buyer", Name: "Kim", Role: "customer"}
	trace := &Trace{OK: true, Data: map[string]any{"page": "welcome"}}
	_, err := e.Assess(context.Background(), exploratoryStep(), actor, trace)
	require.NoError(t, err)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)

	human := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, human, "uc-need-validate-signup")
	assert.Contains(t, human, "a new visitor can sign up")
	assert.Contains(t, human, "Kim")
	assert.Contains(t, human, `"page": "welcome"`)
}

func TestAssess_ModelErrorIsEvaluatorError(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	e := NewExploratoryEvaluator(model, nil)

	_, err := e.Assess(context.Background(), exploratoryStep(), nil, &Trace{OK: true})
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeEvaluator))
}

func TestAssess_EmptyChoicesIsEvaluatorError(t *testing.T) {
	model := &fakeModel{}
	model.reply = ""
	e := NewExploratoryEvaluator(model, nil)

	// An empty reply is undecodable JSON, also an evaluator error.
	_, err := e.Assess(context.Background(), exploratoryStep(), nil, &Trace{OK: true})
	require.Error(t, err)
	assert.True(t, saga.IsCode(err, saga.ErrCodeEvaluator))
}

func TestDecodeVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		verdict string
		wantErr bool
	}{
		{"clean json", `{"verdict": "passed"}`, "passed", false},
		{"prose around json", "Here is my judgement:\n{\"verdict\": \"passed\", \"gaps\": []}\nThanks!", "passed", false},
		{"unknown verdict coerced to blocked", `{"verdict": "maybe"}`, "blocked", false},
		{"missing verdict coerced to blocked", `{"assessment": "unclear"}`, "blocked", false},
		{"not json", "I cannot judge this.", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := decodeVerdict(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, v.Verdict)
		})
	}
}
