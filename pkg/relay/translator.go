package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"courier-hq/courier/pkg/tokens"
	"courier-hq/courier/pkg/upstream"
)

// Translator converts the upstream event stream into client-facing SSE
// chunks, annotating every chunk with running usage and live context
// status. It never buffers the full response; each upstream delta is
// re-emitted as soon as it arrives.
type Translator struct {
	// Model is the client-requested model identifier.
	Model string

	// ResponseID is the chatcmpl identifier shared by every chunk.
	ResponseID string

	// ConversationID is the session key for this conversation.
	ConversationID string

	// PromptTotal is the conversation's cumulative prompt usage including
	// this request's messages.
	PromptTotal int

	// CompletionBase is the conversation's completion usage before this
	// generation.
	CompletionBase int

	// Window is the model's context window.
	Window int
}

// Result summarizes a translated stream.
type Result struct {
	// Content is the full assistant text accumulated from the deltas.
	Content string

	// CompletionTokens is the estimated token count for Content.
	CompletionTokens int

	// Chunks is the number of content chunks emitted to the client.
	Chunks int

	// Err is the mid-stream upstream error, if any. Content emitted before
	// the failure was preserved and an error marker was sent.
	Err error
}

// Run pumps the upstream reader to the client until the stream ends, the
// upstream fails, or the client disconnects. On upstream failure the chunks
// already written stay with the client, followed by a terminal error frame;
// silence is never the failure mode.
func (t *Translator) Run(ctx context.Context, reader *upstream.Reader, w http.ResponseWriter) Result {
	var result Result
	content := ""
	finished := false

	for {
		event, err := reader.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("upstream stream failed mid-flight",
				"conversation_id", t.ConversationID,
				"chunks_emitted", result.Chunks,
				"error", err,
			)
			result.Err = err
			if writeErr := WriteSSEError(w, HandleError(err)); writeErr != nil {
				slog.Error("failed to write SSE error marker", "error", writeErr)
			}
			result.Content = content
			result.CompletionTokens = tokens.EstimateTokens(content)
			return result
		}

		content += event.Text
		completion := tokens.EstimateTokens(content)
		status := tokens.ComputeStatus(t.Window, t.PromptTotal+t.CompletionBase+completion)

		chunk := &ChatCompletionChunk{
			ID:      "chatcmpl-" + t.ResponseID,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   t.Model,
			Choices: []StreamChoice{{
				Index: 0,
				Delta: Delta{Content: event.Text},
			}},
			Usage: &Usage{
				PromptTokens:     t.PromptTotal,
				CompletionTokens: t.CompletionBase + completion,
				TotalTokens:      t.PromptTotal + t.CompletionBase + completion,
			},
			ConversationID: t.ConversationID,
			ContextStatus:  &status,
		}
		if result.Chunks == 0 {
			chunk.Choices[0].Delta.Role = "assistant"
		}
		if event.Finished {
			finished = true
			reason := "stop"
			chunk.Choices[0].FinishReason = &reason
		}

		if err := WriteSSEChunk(w, chunk); err != nil {
			// Client went away; the caller cancels the upstream call.
			slog.Debug("client write failed during streaming",
				"conversation_id", t.ConversationID,
				"chunks_emitted", result.Chunks,
				"error", err,
			)
			result.Err = err
			result.Content = content
			result.CompletionTokens = tokens.EstimateTokens(content)
			return result
		}
		result.Chunks++

		if finished {
			// Drain to the [DONE] sentinel so the connection can be reused.
			for {
				if _, err := reader.Read(ctx); err != nil {
					break
				}
			}
			break
		}
	}

	if err := WriteSSEDone(w); err != nil {
		slog.Debug("failed to write SSE done marker", "error", err)
	}

	result.Content = content
	result.CompletionTokens = tokens.EstimateTokens(content)
	return result
}
