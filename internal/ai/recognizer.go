// Package ai relays label images to an OpenAI-compatible vision provider
// and streams the model output back without engine involvement.
package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured marks a recognizer missing provider credentials.
var ErrNotConfigured = errors.New("ai provider not configured")

const defaultPrompt = `Read this label image. List every barcode payload and
every piece of printed text you can see, in reading order. Mark values such
as part numbers, quantities, dates and lot codes when present.`

// Config holds provider settings for the passthrough recognizer.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Chunk is one streamed unit of provider output. A non-nil Err terminates
// the stream without a done sentinel.
type Chunk struct {
	Content string
	Err     error
}

// Recognizer streams vision model output for raw label images.
type Recognizer struct {
	cfg    Config
	client *http.Client
}

// NewRecognizer creates a passthrough recognizer. The recognizer is usable
// even when unconfigured; Recognize then fails with ErrNotConfigured.
func NewRecognizer(cfg Config) *Recognizer {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = defaultPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Recognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether provider credentials are present.
func (r *Recognizer) Configured() bool {
	return r.cfg.BaseURL != "" && r.cfg.APIKey != ""
}

type streamRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Recognize sends the image to the provider and returns a channel of
// output chunks. The channel closes after the provider's done sentinel. A
// provider failure mid-stream is delivered as a chunk with Err set and the
// channel closes without a done sentinel having been seen.
func (r *Recognizer) Recognize(ctx context.Context, imageData []byte) (<-chan Chunk, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}

	mime := http.DetectContentType(imageData)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	encoded := base64.StdEncoding.EncodeToString(imageData)

	reqBody := streamRequest{
		Model:  r.cfg.Model,
		Stream: true,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: r.cfg.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: fmt.Sprintf("data:%s;base64,%s", mime, encoded)}},
			},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	chunks := make(chan Chunk)
	go r.relay(resp.Body, chunks)
	return chunks, nil
}

// relay copies provider SSE events onto the chunk channel.
func (r *Recognizer) relay(body io.ReadCloser, chunks chan<- Chunk) {
	defer close(chunks)
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}

		var delta streamDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			slog.Debug("skipping unparseable stream event", "error", err)
			continue
		}
		if delta.Error != nil {
			chunks <- Chunk{Err: fmt.Errorf("provider error: %s", delta.Error.Message)}
			return
		}
		for _, c := range delta.Choices {
			if c.Delta.Content != "" {
				chunks <- Chunk{Content: c.Delta.Content}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		chunks <- Chunk{Err: fmt.Errorf("provider stream interrupted: %w", err)}
	}
}
