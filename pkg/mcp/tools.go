package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/sagaline/internal/engine"
	"github.com/rendis/sagaline/pkg/saga"
)

// handleValidate validates a spec and returns the field-level result.
func (s *SagalineServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("spec")
	if err != nil {
		return mcp.NewToolResultError("spec is required"), nil
	}

	spec, result := s.service.Validate(ctx, []byte(raw))

	out := map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	}
	if spec != nil {
		out["sagaKey"] = spec.SagaKey
		out["steps"] = spec.StepCount()
		out["assertions"] = spec.AssertionCount()
	}
	return marshalResult(out)
}

// handleRegister validates a spec and stores it in the registry.
func (s *SagalineServer) handleRegister(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("spec")
	if err != nil {
		return mcp.NewToolResultError("spec is required"), nil
	}

	spec, regErr := s.service.RegisterSaga(ctx, []byte(raw))
	if regErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("register failed: %v", regErr)), nil
	}
	return marshalResult(map[string]any{
		"sagaKey": spec.SagaKey,
		"title":   spec.Title,
		"steps":   spec.StepCount(),
	})
}

// handleRun starts a run from a registered saga key or an inline spec.
func (s *SagalineServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sagaKey := req.GetString("saga_key", "")
	raw := req.GetString("spec", "")
	if sagaKey == "" && raw == "" {
		return mcp.NewToolResultError("one of saga_key or spec is required"), nil
	}
	if sagaKey != "" && raw != "" {
		return mcp.NewToolResultError("saga_key and spec are mutually exclusive"), nil
	}

	opts := engine.RunOptions{
		Mode:   saga.RunMode(req.GetString("mode", "")),
		Params: mcp.ParseStringMap(req, "params", nil),
	}

	if sagaKey != "" {
		rec, err := s.store.GetSaga(ctx, sagaKey)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saga lookup failed: %v", err)), nil
		}
		raw = string(rec.Spec)
	}

	run, runErr := s.service.StartFromRaw(ctx, []byte(raw), opts)
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run start failed: %v", runErr)), nil
	}
	return marshalResult(map[string]any{
		"runId":      run.ID,
		"sagaKey":    run.SagaKey,
		"mode":       run.Mode,
		"status":     run.Status,
		"totalSteps": run.TotalSteps,
	})
}

// handleStatus returns the run's read model.
func (s *SagalineServer) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	report, statusErr := s.service.Status(ctx, runID)
	if statusErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status query failed: %v", statusErr)), nil
	}
	return marshalResult(report)
}

// handleCancel cancels an in-flight run.
func (s *SagalineServer) handleCancel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	if cancelErr := s.service.Cancel(ctx, runID); cancelErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancel failed: %v", cancelErr)), nil
	}
	return marshalResult(map[string]any{"runId": runID, "cancelRequested": true})
}

// handleMessage injects an operator-composed message into an active run.
func (s *SagalineServer) handleMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}
	toActorKey, err := req.RequireString("to_actor_key")
	if err != nil {
		return mcp.NewToolResultError("to_actor_key is required"), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError("body is required"), nil
	}
	channel := req.GetString("channel", string(saga.ChannelInApp))
	subject := req.GetString("subject", "")

	msg, msgErr := s.service.ComposeMessage(ctx, runID, toActorKey, saga.MessageChannel(channel), subject, body)
	if msgErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("message compose failed: %v", msgErr)), nil
	}
	return marshalResult(msg)
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
