package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/oratio/internal/interfaces"
)

// batchRequest is one JSONL line of a batch request file.
type batchRequest struct {
	Key     string         `json:"key"`
	Request requestPayload `json:"request"`
}

type requestPayload struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topK"`
	TopP        float64 `json:"topP"`
}

// EncodeRequests serializes batch items to the JSONL request format,
// one request object per line keyed by the item key.
func EncodeRequests(items []interfaces.BatchItem, temperature float64) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)

	for _, item := range items {
		if item.Key == "" {
			return nil, fmt.Errorf("batch item has empty key")
		}
		entry := batchRequest{
			Key: item.Key,
			Request: requestPayload{
				Contents: []requestContent{{Parts: []requestPart{{Text: item.Prompt}}}},
				GenerationConfig: generationConfig{
					Temperature: temperature,
					TopK:        40,
					TopP:        0.95,
				},
			},
		}
		if err := encoder.Encode(&entry); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// DecodeResults parses a JSONL results file into a key-to-text map.
// Lines without a usable candidate are skipped; the caller treats the
// missing keys as per-item failures.
func DecodeResults(r io.Reader) (map[string]string, error) {
	results := make(map[string]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry struct {
			Key      string `json:"key"`
			Response struct {
				Candidates []struct {
					Content struct {
						Parts []struct {
							Text string `json:"text"`
						} `json:"parts"`
					} `json:"content"`
				} `json:"candidates"`
			} `json:"response"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Key == "" || len(entry.Response.Candidates) == 0 {
			continue
		}

		var text strings.Builder
		for _, part := range entry.Response.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() == 0 {
			continue
		}

		results[entry.Key] = text.String()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
