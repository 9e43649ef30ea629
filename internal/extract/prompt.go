// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/meshbio/dossier-engine/internal/httputil"
	"github.com/meshbio/dossier-engine/pkg/types"
)

// extractionPromptTmpl is the prompt sent to the generative backend for each
// document. It demands a single JSON object with the fixed field set and the
// closed vocabularies the validator enforces.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are a biomedical evidence extraction system. Read the following abstract and report what it says about the drug {{.Drug}}.

Respond with a single JSON object with exactly these fields:
- source_document_id: the document ID shown below, copied verbatim
- direction: one of "benefit", "harm", "neutral", "unclear" — the reported effect of {{.Drug}} on the disease process
- model: one of "human", "animal", "cell", "unclear" — the experimental system
- endpoint: one of "mortality", "progression", "biomarker", "symptomatic", "safety", "unclear"
- mechanism: the proposed mechanism of action, using the abstract's own wording; empty string if none is stated
- confidence: one of "HIGH", "MEDIUM", "LOW" — your certainty in this extraction
- drug_name: "{{.Drug}}"

Do not include any text outside the JSON object. If the abstract does not mention {{.Drug}}, use direction "unclear" and confidence "LOW".

Document ID: {{.ID}}
Title: {{.Title}}
Abstract:
{{.Abstract}}
`))

// renderPrompt executes the extraction prompt template for one document.
func renderPrompt(doc types.Document, drugName string) string {
	var buf bytes.Buffer
	extractionPromptTmpl.Execute(&buf, struct {
		Drug, ID, Title, Abstract string
	}{Drug: drugName, ID: doc.ID, Title: doc.Title, Abstract: doc.Abstract})
	return buf.String()
}

// claudeAPIURL is the Claude API endpoint. Package-level var for test
// substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API. It implements Generator for
// both one-shot and streamed responses; a streamed response is aggregated
// into a single text before being returned, so the validator never sees
// partial chunks. Transport-level rate limiting is retried here, not in the
// validator.
type ClaudeBackend struct {
	APIKey     string
	Model      string
	Client     *http.Client
	MaxRetries int
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// claudeStreamEvent is the subset of stream event payloads the aggregator
// needs: text deltas and the terminal event type.
type claudeStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// Generate sends the prompt and returns the complete response text.
func (c *ClaudeBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: 1024,
		Stream:    opts.Stream,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling generative API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generative API returned %d: %s", resp.StatusCode, string(body))
	}

	if opts.Stream {
		return aggregateStream(resp.Body)
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	var text strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response content")
	}
	return text.String(), nil
}

// aggregateStream concatenates the text deltas of a server-sent-event stream
// into one response string.
func aggregateStream(body io.Reader) (string, error) {
	var text strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var event claudeStreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue // non-JSON keepalive
		}
		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
			text.WriteString(event.Delta.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("stream contained no text deltas")
	}
	return text.String(), nil
}
