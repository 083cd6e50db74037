package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"
)

// run drives one backend invocation: it streams native chunks from the chat
// model and translates them into canonical events with a fixed mapping.
// Every failure path, including a panic inside the backend library, ends the
// stream with a single Failed event; nothing escapes as a raw error.
func (b *base) run(ctx context.Context, task *models.Task, events chan<- Event) {
	started := time.Now()
	defer close(events)
	defer func() {
		if r := recover(); r != nil {
			events <- FailedEvent(types.NewTaskError(types.CodeBackendExecution,
				fmt.Sprintf("backend panic: %v", r), nil))
		}
	}()

	events <- StartEvent(b.kind)

	cm, err := b.chatModel(ctx)
	if err != nil {
		events <- FailedEvent(b.classify(ctx, err))
		return
	}

	stream, err := cm.Stream(ctx, b.buildMessages(task))
	if err != nil {
		events <- FailedEvent(b.classify(ctx, err))
		return
	}
	streamClosed := false
	defer func() {
		if !streamClosed {
			stream.Close()
		}
	}()

	var (
		turn      strings.Builder
		final     strings.Builder
		usage     *models.TokenUsage
		toolStats = make(map[string]int)
		toolOpen  = make(map[string]time.Time)
		toolCalls int
		turns     int
	)

	for {
		if ctx.Err() != nil {
			events <- FailedEvent(cancelError(ctx))
			return
		}

		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				events <- FailedEvent(cancelError(ctx))
				return
			}
			events <- FailedEvent(types.WrapError(types.CodeBackendExecution, err))
			return
		}

		mapped := false

		for _, tc := range msg.ToolCalls {
			// Chunks carrying only argument deltas have no function name.
			if tc.Function.Name == "" {
				continue
			}
			events <- ToolStartEvent(tc.Function.Name, tc.ID, tc.Function.Arguments)
			toolStats[tc.Function.Name]++
			toolCalls++
			toolOpen[tc.ID] = time.Now()
			mapped = true
		}

		switch {
		case msg.Role == schema.Tool:
			var durMs int64
			if t0, ok := toolOpen[msg.ToolCallID]; ok {
				durMs = time.Since(t0).Milliseconds()
				delete(toolOpen, msg.ToolCallID)
			}
			// Tool result chunks carry the call id but not the tool name;
			// the progress pipeline matches by id, falling back to the
			// oldest pending record for the name.
			events <- ToolEndEvent("", msg.ToolCallID, msg.Content, "", durMs, true)
			mapped = true

		case msg.Content != "":
			turn.WriteString(msg.Content)
			final.WriteString(msg.Content)
			events <- ProgressEvent(msg.Content, nil)
			mapped = true
		}

		if meta := msg.ResponseMeta; meta != nil {
			if meta.Usage != nil {
				usage = &models.TokenUsage{
					PromptTokens:     meta.Usage.PromptTokens,
					CompletionTokens: meta.Usage.CompletionTokens,
					TotalTokens:      meta.Usage.TotalTokens,
				}
				mapped = true
			}
			if meta.FinishReason != "" {
				turns++
				if text := strings.TrimSpace(turn.String()); text != "" {
					events <- ResponseEvent(text, turns)
				}
				turn.Reset()
				// Long-lived backend sessions keep the transport open after
				// the finish marker; close it now rather than draining.
				streamClosed = true
				stream.Close()
				break
			}
		}

		if !mapped {
			slog.Debug("dropping unmapped backend event",
				"backend", b.kind, "task", task.ID, "role", msg.Role)
		}
	}

	if ctx.Err() != nil {
		events <- FailedEvent(cancelError(ctx))
		return
	}

	// Residual turn content when the stream ended without a finish marker.
	if text := strings.TrimSpace(turn.String()); text != "" {
		turns++
		events <- ResponseEvent(text, turns)
	}

	events <- StatisticsEvent(&Statistics{
		TotalTurns:     turns,
		TotalToolCalls: toolCalls,
		ToolStats:      toolStats,
		TokenUsage:     usage,
	})
	events <- CompletedEvent(final.String(), task.SessionID, time.Since(started).Milliseconds())
}

// buildMessages shapes the backend request from the generic task.
func (b *base) buildMessages(task *models.Task) []*schema.Message {
	sys := b.systemPrompt
	if task.Context != nil && task.Context.WorkingDir != "" {
		sys += fmt.Sprintf(" The working directory is %s.", task.Context.WorkingDir)
	}
	return []*schema.Message{
		schema.SystemMessage(sys),
		schema.UserMessage(task.Instruction),
	}
}

// classify converts an adapter-boundary error into the task error taxonomy.
func (b *base) classify(ctx context.Context, err error) *types.TaskError {
	if ctx.Err() != nil {
		return cancelError(ctx)
	}
	return types.WrapError(types.CodeBackendExecution, err)
}

// cancelError distinguishes a timeout from an explicit cancellation; both
// are CANCELLED in the taxonomy and neither is retried.
func cancelError(ctx context.Context) *types.TaskError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.NewTaskError(types.CodeCancelled, "task timed out", nil)
	}
	return types.NewTaskError(types.CodeCancelled, "task cancelled", nil)
}
