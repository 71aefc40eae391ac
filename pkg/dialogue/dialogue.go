// Package dialogue models the hosted dialogue-management service: requests, the
// response messages it can return, and how those are turned into environment actions.
package dialogue

import (
	"context"

	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/retry"
	"github.com/pkg/errors"
)

// EndInteractionContent is the respond content used when the service ends the conversation.
const EndInteractionContent = env.StopToken

var (
	// ErrResponseMessageCount is returned when a response does not carry exactly one message.
	ErrResponseMessageCount = errors.New("detect intent response must contain exactly one response message")
	// ErrUnknownTool is returned for tool calls whose id is not in the tool name map.
	ErrUnknownTool          = errors.New("unknown tool from dialogue agent")
	// ErrEmptyText is returned for text messages without any alternative.
	ErrEmptyText            = errors.New("text response message has no alternatives")
	// ErrPendingCallOverflow is returned when a bounded PendingCalls is already full.
	ErrPendingCallOverflow  = errors.New("dialogue agent issued a tool call while another one is still pending")
)

// Message is one of Text, EndInteraction, ToolCall or Unsupported.
type Message interface {
	isMessage()
}

// Text is a plain reply. Only the first alternative is used.
type Text struct {
	Alternatives []string
}

// EndInteraction means the service considers the conversation over.
type EndInteraction struct{}

// ToolCall asks the client to run a tool and report the result in the next request.
type ToolCall struct {
	// Tool is the opaque service-side tool identifier.
	Tool   string
	Action string
	Input  map[string]any
}

// Unsupported is any other message kind the service may emit. It still counts
// towards the number of response messages.
type Unsupported struct {
	Raw map[string]any
}

func (Text) isMessage()           {}
func (EndInteraction) isMessage() {}
func (ToolCall) isMessage()       {}
func (Unsupported) isMessage()    {}

// Response is a decoded detect-intent response.
type Response struct {
	Messages []Message
	// Raw is the whole query result as plain JSON values, kept for the transcript.
	Raw map[string]any
	// Generative holds the generative metadata of the turn, if any.
	Generative map[string]any
}

type ToolError struct {
	Message string
}

// ToolResult relays the outcome of a tool call. Exactly one of Output and Error is set.
type ToolResult struct {
	Tool   string
	Action string
	Output map[string]any
	Error  *ToolError
}

// Request is a text turn when ToolResult is nil.
type Request struct {
	Session      string
	LanguageCode string
	Text         string
	ToolResult   *ToolResult
}

// ToolInfo describes a tool registered with the service agent.
type ToolInfo struct {
	Name        string
	DisplayName string
	Description string
}

// Service is the session-oriented detect-intent API.
type Service interface {
	DetectIntent(ctx context.Context, req *Request) (*Response, error)
	ListTools(ctx context.Context) ([]ToolInfo, error)
	// SessionPrefix is the resource name that session ids are appended to.
	SessionPrefix() string
}

type retryingService struct {
	Service
	policy retry.Policy
}

// WithRetry wraps s so that DetectIntent and ListTools run under policy.
func WithRetry(s Service, policy retry.Policy) Service {
	if !policy.Enabled {
		return s
	}
	return &retryingService{Service: s, policy: policy}
}

func (r *retryingService) DetectIntent(ctx context.Context, req *Request) (*Response, error) {
	var ret *Response
	err := retry.Do(ctx, r.policy, func() error {
		resp, err := r.Service.DetectIntent(ctx, req)
		if err != nil {
			return err
		}
		ret = resp
		return nil
	})
	return ret, err
}

func (r *retryingService) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var ret []ToolInfo
	err := retry.Do(ctx, r.policy, func() error {
		tools, err := r.Service.ListTools(ctx)
		if err != nil {
			return err
		}
		ret = tools
		return nil
	})
	return ret, err
}
