package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"courier-hq/courier/pkg/conversation"
	"courier-hq/courier/pkg/relay"
	"courier-hq/courier/pkg/tokens"
	"courier-hq/courier/pkg/upstream"
)

// Dispatcher sends a chat payload upstream and returns the raw response.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *upstream.ChatPayload) (*http.Response, error)
}

// Metrics receives per-request observations. A nil Metrics is a no-op.
type Metrics interface {
	ObserveCompletion(streaming bool, promptTokens, completionTokens, chunks int)
}

// ChatHandler serves POST /v1/chat/completions. It resolves the request to a
// conversation, guards the model's context window before dispatching, and
// translates the upstream response into the OpenAI wire shape.
type ChatHandler struct {
	dispatcher Dispatcher
	store      *conversation.Store
	profiles   *tokens.Profiles
	metrics    Metrics
}

// NewChatHandler creates a chat completions handler.
func NewChatHandler(dispatcher Dispatcher, store *conversation.Store, profiles *tokens.Profiles, m Metrics) *ChatHandler {
	return &ChatHandler{
		dispatcher: dispatcher,
		store:      store,
		profiles:   profiles,
		metrics:    m,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := relay.ParseChatCompletionRequest(r)
	if err != nil {
		relay.WriteErrorResponse(w, relay.HandleError(err))
		return
	}

	apiKey := relay.APIKey(r)
	key := h.store.Resolve(apiKey, req.Model, relay.FirstUserMessage(req.Messages))
	sess, _ := h.store.Get(key)

	newMsgs := deltaMessages(req.Messages, len(sess.Messages))
	promptEstimate := estimateMessages(newMsgs)
	window := h.profiles.Window(req.Model)

	projected := sess.TotalTokens() + promptEstimate
	if projected > window {
		status := tokens.ComputeStatus(window, projected)
		relay.WriteErrorResponse(w, relay.HandleError(&relay.ContextExceededError{Status: status}))
		return
	}

	payload := &upstream.ChatPayload{
		Model:    req.Model,
		Messages: upstreamMessages(sess.Messages, newMsgs),
		Stream:   req.Stream,
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), payload)
	if err != nil {
		relay.WriteErrorResponse(w, relay.HandleError(err))
		return
	}
	defer resp.Body.Close()

	responseID := uuid.NewString()
	if req.Stream {
		h.serveStream(w, r, resp, req, key, sess, promptEstimate, window, newMsgs, responseID)
		return
	}
	h.serveCompletion(w, resp, req, key, sess, promptEstimate, window, newMsgs, responseID)
}

func (h *ChatHandler) serveCompletion(w http.ResponseWriter, resp *http.Response, req *relay.ChatCompletionRequest, key string, sess conversation.Session, promptEstimate, window int, newMsgs []relay.Message, responseID string) {
	completion, err := upstream.ParseCompletion(resp.Body)
	if err != nil {
		relay.WriteErrorResponse(w, relay.HandleError(err))
		return
	}

	completionTokens := tokens.EstimateTokens(completion.Text)
	usage := relay.Usage{
		PromptTokens:     sess.PromptTokens + promptEstimate,
		CompletionTokens: sess.CompletionTokens + completionTokens,
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	status := tokens.ComputeStatus(window, usage.TotalTokens)

	h.record(key, newMsgs, completion.Text, promptEstimate, completionTokens)
	if h.metrics != nil {
		h.metrics.ObserveCompletion(false, promptEstimate, completionTokens, 0)
	}

	relay.WriteJSONResponse(w, http.StatusOK,
		relay.FormatCompletionResponse(responseID, req.Model, key, completion.Text, usage, status))
}

func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, resp *http.Response, req *relay.ChatCompletionRequest, key string, sess conversation.Session, promptEstimate, window int, newMsgs []relay.Message, responseID string) {
	relay.SetSSEHeaders(w)

	reader := upstream.NewReader(resp.Body)
	translator := &relay.Translator{
		Model:          req.Model,
		ResponseID:     responseID,
		ConversationID: key,
		PromptTotal:    sess.PromptTokens + promptEstimate,
		CompletionBase: sess.CompletionTokens,
		Window:         window,
	}
	result := translator.Run(r.Context(), reader, w)

	// A partial answer still counts against the conversation: the client
	// saw the chunks, so the accounting has to match.
	if result.Content != "" || result.Err == nil {
		h.record(key, newMsgs, result.Content, promptEstimate, result.CompletionTokens)
	}
	if h.metrics != nil {
		h.metrics.ObserveCompletion(true, promptEstimate, result.CompletionTokens, result.Chunks)
	}
}

// record appends the exchange to the conversation store.
func (h *ChatHandler) record(key string, newMsgs []relay.Message, assistant string, promptTokens, completionTokens int) {
	userMsgs := make([]conversation.Message, 0, len(newMsgs))
	for _, m := range newMsgs {
		userMsgs = append(userMsgs, conversation.Message{
			Role:         m.Role,
			Content:      m.Content,
			ApproxTokens: tokens.EstimateTokens(m.Content),
		})
	}
	ok := h.store.AppendExchange(key, userMsgs, conversation.Message{
		Role:         "assistant",
		Content:      assistant,
		ApproxTokens: tokens.EstimateTokens(assistant),
	}, promptTokens, completionTokens)
	if !ok {
		slog.Warn("conversation evicted before exchange could be recorded", "conversation_id", key)
	}
}

// deltaMessages returns the messages not yet recorded in the conversation.
// Clients that resend the full history contribute only the tail; clients
// that send just the latest message contribute everything they sent.
func deltaMessages(msgs []relay.Message, recorded int) []relay.Message {
	if len(msgs) > recorded {
		return msgs[recorded:]
	}
	return msgs
}

func estimateMessages(msgs []relay.Message) int {
	total := 0
	for _, m := range msgs {
		total += tokens.EstimateTokens(m.Content)
	}
	return total
}

// upstreamMessages concatenates recorded history and the new messages into
// the upstream payload order.
func upstreamMessages(history []conversation.Message, newMsgs []relay.Message) []upstream.ChatMessage {
	out := make([]upstream.ChatMessage, 0, len(history)+len(newMsgs))
	for _, m := range history {
		out = append(out, upstream.ChatMessage{Role: m.Role, Content: m.Content})
	}
	for _, m := range newMsgs {
		out = append(out, upstream.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
