// Package gemini wraps the search-grounded Gemini model used by the research
// stage. The model browses the public web for a participant and returns a
// structured synthesis with its sources.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"

	"herald/internal/config"
	"herald/internal/services"
)

// Synthesis is the structured research output for one subject.
type Synthesis struct {
	Summary string
	Sources []string
}

// Client calls the Gemini API with the GoogleSearch tool enabled.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient builds a research client from configuration.
func NewClient(ctx context.Context, cfg config.Research) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "research", "research.api_key is not set", nil)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientConfig.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "research", "create client", err)
	}
	return &Client{client: client, model: cfg.Model}, nil
}

type structuredSynthesis struct {
	Summary string `json:"summary"`
}

var synthesisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {Type: genai.TypeString},
	},
	Required: []string{"summary"},
}

// Research runs one grounded prompt and returns the synthesis plus the web
// sources the model consulted.
func (c *Client) Research(ctx context.Context, prompt string) (*Synthesis, error) {
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   synthesisSchema,
		},
	)
	if err != nil {
		return nil, classifyErr(err)
	}

	var parsed structuredSynthesis
	if err := json.Unmarshal([]byte(resp.Text()), &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternal, "", "research", "parse structured json", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, services.Wrap(services.ErrExternal, "", "research", "empty synthesis", nil)
	}

	return &Synthesis{
		Summary: strings.TrimSpace(parsed.Summary),
		Sources: extractSources(resp),
	}, nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return services.Wrap(services.ErrTransient, "", "research", "api error", err)
		}
		return services.Wrap(services.ErrExternal, "", "research", "api error", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTransient, "", "research", "network timeout", err)
	}
	return services.Wrap(services.ErrExternal, "", "research", "request failed", err)
}

func extractSources(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate.GroundingMetadata == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var sources []string
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		uri := strings.TrimSpace(chunk.Web.URI)
		if uri == "" {
			continue
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}
		sources = append(sources, uri)
	}
	return sources
}
