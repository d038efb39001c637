package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestTransport(fn roundTripFunc) *GeminiTransport {
	return NewGeminiTransport(GeminiConfig{
		BaseURL:    "https://example.test/v1beta/models/",
		APIKey:     "secret",
		Model:      "gemini-test",
		HTTPClient: &http.Client{Transport: fn},
	})
}

func TestGeminiGenerateSendsGroundedRequest(t *testing.T) {
	var captured struct {
		method string
		url    string
		key    string
		body   map[string]any
	}
	transport := newTestTransport(func(req *http.Request) (*http.Response, error) {
		captured.method = req.Method
		captured.url = req.URL.String()
		captured.key = req.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(req.Body).Decode(&captured.body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{
			"candidates": [{
				"content": {"parts": [{"text": "Switch to "}, {"text": "LED lighting."}]},
				"groundingMetadata": {"groundingChunks": [
					{"web": {"uri": "https://a.example", "title": "A"}},
					{"web": {"uri": "https://a.example", "title": "A again"}},
					{"web": {"uri": "", "title": "blank"}},
					{"web": {"uri": "https://b.example", "title": " B "}}
				]}
			}]
		}`), nil
	})

	resp, err := transport.Generate(context.Background(), Request{System: "be helpful", Prompt: "what now?"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if captured.method != http.MethodPost {
		t.Fatalf("method = %s, want POST", captured.method)
	}
	if captured.url != "https://example.test/v1beta/models/gemini-test:generateContent" {
		t.Fatalf("url = %s", captured.url)
	}
	if captured.key != "secret" {
		t.Fatalf("api key header = %q", captured.key)
	}
	if _, ok := captured.body["tools"]; !ok {
		t.Fatalf("request missing search tool: %v", captured.body)
	}
	if _, ok := captured.body["systemInstruction"]; !ok {
		t.Fatalf("request missing system instruction: %v", captured.body)
	}

	if resp.Text != "Switch to LED lighting." {
		t.Fatalf("text = %q", resp.Text)
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("citations = %+v, want 2 unique", resp.Citations)
	}
	if resp.Citations[0].URI != "https://a.example" || resp.Citations[1].Title != "B" {
		t.Fatalf("citations = %+v", resp.Citations)
	}
}

func TestGeminiGenerateStatusError(t *testing.T) {
	transport := newTestTransport(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `{"error":"overloaded"}`), nil
	})

	_, err := transport.Generate(context.Background(), Request{Prompt: "hi"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable || !strings.Contains(statusErr.Body, "overloaded") {
		t.Fatalf("status error = %+v", statusErr)
	}
	if Classify(err) != Transient {
		t.Fatalf("503 should classify as transient")
	}
}

func TestGeminiGenerateEmptyCandidates(t *testing.T) {
	transport := newTestTransport(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"candidates": []}`), nil
	})

	_, err := transport.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiGenerateRequiresConfiguration(t *testing.T) {
	called := false
	transport := NewGeminiTransport(GeminiConfig{
		Model: "gemini-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unexpected call")
		})},
	})

	_, err := transport.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if called {
		t.Fatal("transport should not be called without an api key")
	}
}

func TestGeminiGenerateRejectsEmptyPrompt(t *testing.T) {
	transport := newTestTransport(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("unexpected call")
	})

	_, err := transport.Generate(context.Background(), Request{Prompt: "   "})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestGeminiGenerateNetworkError(t *testing.T) {
	transport := newTestTransport(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := transport.Generate(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if Classify(err) != Transient {
		t.Fatalf("network errors should be transient: %v", err)
	}
}
