package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GeminiConfig configures the generateContent endpoint and HTTP behaviour.
type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// GeminiTransport calls a Gemini-compatible generateContent endpoint with
// search grounding enabled so answers carry citations.
type GeminiTransport struct {
	cfg GeminiConfig
}

func NewGeminiTransport(cfg GeminiConfig) *GeminiTransport {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	return &GeminiTransport{cfg: cfg}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []struct {
				Web struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

func (t *GeminiTransport) Generate(ctx context.Context, req Request) (Response, error) {
	apiKey := strings.TrimSpace(t.cfg.APIKey)
	model := strings.TrimSpace(t.cfg.Model)
	if apiKey == "" {
		return Response{}, fmt.Errorf("api key is required: %w", ErrNotConfigured)
	}
	if model == "" {
		return Response{}, fmt.Errorf("model is required: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, fmt.Errorf("prompt is required: %w", ErrInvalidRequest)
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		Tools:    []map[string]any{{"google_search": map[string]any{}}},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	requestBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal advisor request: %w", err)
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/" + url.PathEscape(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return Response{}, fmt.Errorf("build advisor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	res, err := t.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("advisor request failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errBody, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return Response{}, fmt.Errorf("read advisor error body: %w", err)
		}
		return Response{}, &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	var payload geminiResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Response{}, fmt.Errorf("decode advisor response: %w", err)
	}
	if len(payload.Candidates) == 0 {
		return Response{}, ErrEmptyResponse
	}

	candidate := payload.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, ErrEmptyResponse
	}

	citations := []Citation{}
	seen := map[string]bool{}
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		uri := strings.TrimSpace(chunk.Web.URI)
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		citations = append(citations, Citation{Title: strings.TrimSpace(chunk.Web.Title), URI: uri})
	}

	return Response{Text: text.String(), Citations: citations}, nil
}
