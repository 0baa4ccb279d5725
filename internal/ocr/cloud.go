package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

const cloudPrompt = `Extract all readable text from this image.
Return only a JSON object with this exact schema:

{
  "fragments": [
    {"text": "<text>", "x": <int>, "y": <int>, "width": <int>, "height": <int>, "confidence": <0.0-1.0>}
  ]
}

Coordinates are pixel positions in the original image. Do not add any other
text, explanations, or formatting.`

// CloudEngine extracts text through an OpenAI-compatible vision endpoint.
type CloudEngine struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// CloudConfig configures a cloud OCR engine.
type CloudConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewCloudEngine creates a cloud OCR engine. A missing API key or base URL
// yields ErrNotConfigured so the pipeline can degrade instead of failing.
func NewCloudEngine(cfg CloudConfig) (*CloudEngine, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: cloud base URL and API key required", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &CloudEngine{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
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

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type fragmentPayload struct {
	Fragments []struct {
		Text       string  `json:"text"`
		X          int     `json:"x"`
		Y          int     `json:"y"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Confidence float64 `json:"confidence"`
	} `json:"fragments"`
}

// Fragments sends the image to the vision provider and parses the returned
// fragment list. Provider and transport failures surface as errors; the
// pipeline treats them as a degraded component, not a failed request.
func (e *CloudEngine) Fragments(ctx context.Context, img image.Image) ([]Fragment, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode image for cloud ocr: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	reqBody := chatRequest{
		Model: e.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: cloudPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + encoded}},
			},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal cloud ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build cloud ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloud ocr request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cloud ocr response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloud ocr request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("unmarshal cloud ocr response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("cloud ocr provider error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("cloud ocr response contained no choices")
	}

	raw, err := extractJSON(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("cloud ocr response was not parseable: %w", err)
	}

	var parsed fragmentPayload
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal cloud ocr fragments: %w", err)
	}

	fragments := make([]Fragment, 0, len(parsed.Fragments))
	for _, f := range parsed.Fragments {
		if f.Text == "" {
			continue
		}
		conf := f.Confidence
		if conf <= 0 || conf > 1 {
			conf = 1.0
		}
		fragments = append(fragments, Fragment{
			Text:       f.Text,
			Box:        image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height),
			Confidence: conf,
		})
	}
	return fragments, nil
}

// Close is a no-op; the engine holds no native state.
func (e *CloudEngine) Close() error { return nil }

// extractJSON locates the first balanced JSON object in model output, which
// may be wrapped in prose or markdown fences.
func extractJSON(input string) (json.RawMessage, error) {
	start := -1
	for i, c := range input {
		if c == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found")
	}

	depth := 0
	end := -1
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		c := input[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	raw := json.RawMessage(input[start:end])
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("extracted text is not valid JSON: %w", err)
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
