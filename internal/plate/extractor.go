package plate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xela07ax/integra-gate/internal/camera"
)

// Extractor — внешняя способность «кадр → текст номера».
// Пустая строка означает «читаемого номера в кадре нет» — это не ошибка.
// Вендор сам делает препроцессинг/стабилизацию, для нас это черный ящик.
type Extractor interface {
	ExtractText(ctx context.Context, frame *camera.Frame) (string, error)
}

// Маркер «номера нет» в ответе vision-модели (зашит в промпт).
const noPlateMarker = "NO_PLATE_DETECTED"

const extractionPrompt = "Extract only the vehicle number plate text from this image. " +
	"Reply only with the plate number, nothing else. " +
	"If no plate is visible, respond with 'NO_PLATE_DETECTED'."

// VisionExtractor ходит в generative-vision API вендора по HTTP.
type VisionExtractor struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewVisionExtractor(endpoint, apiKey string, client *http.Client) *VisionExtractor {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &VisionExtractor{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
	}
}

type visionRequest struct {
	Contents []visionContent `json:"contents"`
}

type visionContent struct {
	Parts []visionPart `json:"parts"`
}

type visionPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *visionInlineData `json:"inline_data,omitempty"`
}

type visionInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type visionResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (e *VisionExtractor) ExtractText(ctx context.Context, frame *camera.Frame) (string, error) {
	if e.apiKey == "" {
		return "", fmt.Errorf("vision API key is not configured")
	}

	reqBody := visionRequest{
		Contents: []visionContent{{
			Parts: []visionPart{
				{Text: extractionPrompt},
				{InlineData: &visionInlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(frame.Data),
				}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision call failed: %w", err)
	}
	defer resp.Body.Close()

	// Вендор троттлит — отдаем типизированную ошибку, ретраер учтет Retry-After
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      fmt.Errorf("vision API throttled"),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("vision API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode vision response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("vision API returned empty response")
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == noPlateMarker {
		return "", nil
	}
	return text, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 2 * time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 2 * time.Second
}
