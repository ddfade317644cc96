// Package gemini provides a model.Model backed by the Google Gen AI SDK.
//
// It is the only provider that honors web augmentation (Google Search
// grounding) and forwards remote file references as URI parts.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/model"
	"google.golang.org/genai"
)

// DefaultModel is used when no model id is configured.
const DefaultModel = "gemini-2.5-flash"

// Options configures the Gemini adapter.
type Options struct {
	Model       string
	Temperature float32
	APIKey      string
	Logger      logging.Logger
}

// Model wraps genai.Client behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       DefaultModel,
		Temperature: 0.7,
		Logger:      logging.NoOpLogger{},
	}
}

// NewModel creates a Gemini API client.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		contents := []*genai.Content{{Role: genai.RoleUser, Parts: buildParts(req)}}
		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, buildConfig(req, m.opts.Temperature))
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		r := model.Response{
			ID:           resp.ResponseID,
			Text:         resp.Text(),
			FinishReason: "stop",
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			r.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
		}
		if u := resp.UsageMetadata; u != nil {
			r.Usage = &model.TokenUsage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
			}
		}
		out <- r
	}()
	return out, errCh
}

// buildParts forwards remote file references as URI parts and leaves
// everything else as textual notes on the prompt.
func buildParts(req model.Request) []*genai.Part {
	local := req
	local.FileReferences = nil
	var remote []*genai.Part
	for _, f := range req.FileReferences {
		if isRemoteURI(f.URL) {
			remote = append(remote, genai.NewPartFromURI(f.URL, f.ContentType))
			continue
		}
		local.FileReferences = append(local.FileReferences, f)
	}
	parts := []*genai.Part{genai.NewPartFromText(model.PromptWithFileNotes(local))}
	return append(parts, remote...)
}

func isRemoteURI(u string) bool {
	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "gs://")
}

// buildConfig maps the contract and augmentation flag onto the request config.
// Search grounding cannot be combined with a response schema, so an augmented
// turn relies on the prompt's JSON instructions instead.
func buildConfig(req model.Request, temperature float32) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if req.AllowWebAugmentation {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
		return cfg
	}
	if req.Contract != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = SchemaFromMap(req.Contract)
	}
	return cfg
}

// SchemaFromMap converts a JSON schema map into a genai.Schema. Unsupported
// keywords are dropped.
func SchemaFromMap(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	s.Enum = stringSlice(m["enum"])
	s.Required = stringSlice(m["required"])
	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = SchemaFromMap(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = SchemaFromMap(items)
	}
	return s
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:                 m.opts.Model,
		Provider:             "gemini",
		SupportsWebAugment:   true,
		SupportsFileRefs:     true,
		SupportsContractJSON: true,
	}
}
