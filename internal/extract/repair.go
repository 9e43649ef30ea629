// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// rawExtraction is the loosely-typed object recovered from the backend's
// response text, before validation and coercion.
type rawExtraction struct {
	SourceDocumentID string `json:"source_document_id"`
	Direction        string `json:"direction"`
	Model            string `json:"model"`
	Endpoint         string `json:"endpoint"`
	Mechanism        string `json:"mechanism"`
	Confidence       string `json:"confidence"`
	DrugName         string `json:"drug_name"`
}

// typed converts a validated rawExtraction into the immutable record type.
func (r rawExtraction) typed() types.EvidenceExtraction {
	return types.EvidenceExtraction{
		SourceDocumentID: r.SourceDocumentID,
		Direction:        types.Direction(r.Direction),
		Model:            types.EvidenceModel(r.Model),
		Endpoint:         types.Endpoint(r.Endpoint),
		Mechanism:        r.Mechanism,
		Confidence:       types.Confidence(r.Confidence),
		DrugName:         r.DrugName,
	}
}

// trailingCommaPattern matches a comma directly before a closing brace or
// bracket, a common near-miss in generated JSON.
var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// smartQuoteReplacer normalizes typographic quotes to ASCII.
var smartQuoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, // “ ”
	"‘", "'", "’", "'", // ‘ ’
)

// Repair recovers a single structured object from the backend's raw text
// response. It strips surrounding prose and formatting fences, extracts the
// first balanced JSON object, and fixes common near-miss syntax (trailing
// separators, typographic quotes, single-quoted objects). It never
// synthesizes missing fields: a field absent from the recovered object stays
// empty and is caught by validation. If no structured object can be
// recovered it returns an error, which the batch records as "unparseable".
func Repair(raw string) (rawExtraction, error) {
	text := stripFences(smartQuoteReplacer.Replace(raw))

	obj, ok := extractObject(text)
	if !ok {
		return rawExtraction{}, fmt.Errorf("no JSON object found in response")
	}

	candidates := []string{
		obj,
		trailingCommaPattern.ReplaceAllString(obj, "$1"),
	}
	// A single-quoted object (no double quotes at all) is unambiguous to
	// requote; anything mixed is left alone.
	if !strings.Contains(obj, `"`) && strings.Contains(obj, "'") {
		requoted := strings.ReplaceAll(obj, "'", `"`)
		candidates = append(candidates,
			requoted,
			trailingCommaPattern.ReplaceAllString(requoted, "$1"))
	}

	var lastErr error
	for _, candidate := range candidates {
		var fields map[string]any
		if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
			lastErr = err
			continue
		}
		return fromFields(fields), nil
	}
	return rawExtraction{}, fmt.Errorf("parsing recovered object: %w", lastErr)
}

// stripFences removes Markdown code-fence lines, keeping their contents.
func stripFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// extractObject returns the first balanced top-level JSON object in text,
// tracking string literals so braces inside values are ignored.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// string contents are opaque
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// fromFields maps a decoded JSON object onto rawExtraction. Only string and
// numeric values are taken; anything else is left empty for validation to
// reject. Nothing is invented for absent keys.
func fromFields(fields map[string]any) rawExtraction {
	str := func(key string) string {
		switch v := fields[key].(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%v", v)
		default:
			return ""
		}
	}
	return rawExtraction{
		SourceDocumentID: str("source_document_id"),
		Direction:        str("direction"),
		Model:            str("model"),
		Endpoint:         str("endpoint"),
		Mechanism:        str("mechanism"),
		Confidence:       str("confidence"),
		DrugName:         str("drug_name"),
	}
}
