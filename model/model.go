package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/sentinel/core"
)

// Request captures the normalized model input for one turn.
type Request struct {
	// Prompt is the fully composed context text.
	Prompt string `json:"prompt"`
	// ContractName identifies the structured-output contract.
	ContractName string `json:"contract_name,omitempty"`
	// Contract is the JSON schema the reply must satisfy. Nil means free text.
	Contract map[string]any `json:"contract,omitempty"`
	// AllowWebAugmentation lets the provider ground the reply with web results.
	AllowWebAugmentation bool `json:"allow_web_augmentation"`
	// FileReferences are forwarded to the provider unchanged.
	FileReferences []core.FileRef `json:"file_references,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the raw provider reply. Text holds the contract JSON when a
// contract was requested.
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name                 string `json:"name"`
	Provider             string `json:"provider"` // "openai", "anthropic", "gemini", "mock"
	SupportsWebAugment   bool   `json:"supports_web_augment"`
	SupportsFileRefs     bool   `json:"supports_file_refs"`
	SupportsContractJSON bool   `json:"supports_contract_json"`
}

// Model is the minimal interface the reply client drives. Implementations emit
// exactly one final Response or one error, then close both channels.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoResponse is returned when a model closes without producing a reply.
var ErrNoResponse = errors.New("model produced no response")

// Collect drains a Generate call and returns the final response.
func Collect(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)
	var (
		last Response
		got  bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			last, got = r, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}
	if !got {
		return Response{}, ErrNoResponse
	}
	return last, nil
}

// MockModel is a lightweight in-memory Model useful for tests & examples. It
// replays canned replies in order and records every request it receives.
type MockModel struct {
	info Info

	mu       sync.Mutex
	replies  []string
	errs     []error
	fallback string
	requests []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:                 name,
			Provider:             "mock",
			SupportsWebAugment:   true,
			SupportsFileRefs:     true,
			SupportsContractJSON: true,
		},
		fallback: `{"replyText":"Acknowledged."}`,
	}
}

// AddReply queues a raw reply text.
func (m *MockModel) AddReply(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	m.errs = append(m.errs, nil)
	return m
}

// AddError queues a transport failure.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, "")
	m.errs = append(m.errs, err)
	return m
}

// SetFallback sets the reply used once the queue is exhausted.
func (m *MockModel) SetFallback(text string) { m.mu.Lock(); m.fallback = text; m.mu.Unlock() }

// Requests returns a copy of all received requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Calls returns the number of Generate invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	text, err := m.fallback, error(nil)
	if len(m.replies) > 0 {
		text, err = m.replies[0], m.errs[0]
		m.replies, m.errs = m.replies[1:], m.errs[1:]
	}
	n := len(m.requests)
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if ctxErr := ctx.Err(); ctxErr != nil {
			errCh <- ctxErr
			return
		}
		if err != nil {
			errCh <- err
			return
		}
		respCh <- Response{ID: fmt.Sprintf("mock-%d", n), Text: text, FinishReason: "stop"}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

// DefaultContractName is used when a request carries a contract without a name.
const DefaultContractName = "sentinel_reply"

// ContractNameOrDefault returns the request's contract name or the default.
func ContractNameOrDefault(req Request) string {
	if req.ContractName != "" {
		return req.ContractName
	}
	return DefaultContractName
}

// PromptWithFileNotes appends a textual list of file references to the
// prompt, for providers that cannot forward references natively.
func PromptWithFileNotes(req Request) string {
	if len(req.FileReferences) == 0 {
		return req.Prompt
	}
	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n\nFILE REFERENCES:\n")
	for _, f := range req.FileReferences {
		fmt.Fprintf(&b, "- %s (%s) %s\n", f.Name, f.ContentType, f.URL)
	}
	return b.String()
}
