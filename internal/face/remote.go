package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
)

// RemoteRecognizer — HTTP-клиент CV-sidecar'а, который держит каскад детекции
// и обученную модель. Реализует сразу Detector, Matcher и Trainer: сами
// алгоритмы вне платформы, здесь только транспорт и маппинг ошибок.
type RemoteRecognizer struct {
	baseURL string
	client  *http.Client

	// Сбор образцов и обучение идут минутами — у них свой клиент,
	// дедлайн контролируется контекстом вызывающего
	trainClient *http.Client
}

func NewRemoteRecognizer(baseURL string, timeout time.Duration) *RemoteRecognizer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteRecognizer{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
		trainClient: &http.Client{},
	}
}

type detectResponse struct {
	Faces []struct {
		X    int    `json:"x"`
		Y    int    `json:"y"`
		W    int    `json:"w"`
		H    int    `json:"h"`
		Crop string `json:"crop"` // base64 JPEG вырезки
	} `json:"faces"`
}

func (r *RemoteRecognizer) DetectFaces(ctx context.Context, frame *camera.Frame) ([]Region, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/detect", bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("recognizer: failed to build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognizer: detect call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("recognizer: detect returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("recognizer: failed to decode detect response: %w", err)
	}

	regions := make([]Region, 0, len(parsed.Faces))
	for _, f := range parsed.Faces {
		crop, err := base64.StdEncoding.DecodeString(f.Crop)
		if err != nil {
			return nil, fmt.Errorf("recognizer: malformed crop payload: %w", err)
		}
		regions = append(regions, Region{X: f.X, Y: f.Y, W: f.W, H: f.H, Crop: crop})
	}
	return regions, nil
}

type matchRequest struct {
	FrameID string `json:"frame_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	Crop    string `json:"crop"`
}

type matchResponse struct {
	IdentityID int64   `json:"identity_id"`
	Distance   float64 `json:"distance"`
}

func (r *RemoteRecognizer) MatchFace(ctx context.Context, frame *camera.Frame, region Region) (int64, float64, error) {
	payload, err := json.Marshal(matchRequest{
		FrameID: frame.ID,
		X:       region.X,
		Y:       region.Y,
		W:       region.W,
		H:       region.H,
		Crop:    base64.StdEncoding.EncodeToString(region.Crop),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("recognizer: failed to marshal match request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/match", bytes.NewReader(payload))
	if err != nil {
		return 0, 0, fmt.Errorf("recognizer: failed to build match request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("recognizer: match call failed: %w", err)
	}
	defer resp.Body.Close()

	// Sidecar без обученного артефакта отвечает 409 — это особый случай,
	// который должен дойти до движка как ErrModelNotTrained
	if resp.StatusCode == http.StatusConflict {
		return 0, 0, domain.ErrModelNotTrained
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, 0, fmt.Errorf("recognizer: match returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, fmt.Errorf("recognizer: failed to decode match response: %w", err)
	}
	return parsed.IdentityID, parsed.Distance, nil
}

type captureSamplesRequest struct {
	IdentityID int64  `json:"identity_id"`
	Name       string `json:"name"`
	Samples    int    `json:"samples"`
}

func (r *RemoteRecognizer) CaptureSamples(ctx context.Context, identityID int64, name string, samples int) (int, error) {
	payload, _ := json.Marshal(captureSamplesRequest{
		IdentityID: identityID,
		Name:       name,
		Samples:    samples,
	})

	var parsed struct {
		Saved int `json:"saved"`
	}
	if err := r.postJSON(ctx, "/v1/samples", payload, &parsed); err != nil {
		return 0, err
	}
	return parsed.Saved, nil
}

func (r *RemoteRecognizer) Train(ctx context.Context) (int, error) {
	var parsed struct {
		FacesCount int `json:"faces_count"`
	}
	if err := r.postJSON(ctx, "/v1/train", nil, &parsed); err != nil {
		return 0, err
	}
	return parsed.FacesCount, nil
}

func (r *RemoteRecognizer) postJSON(ctx context.Context, path string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("recognizer: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.trainClient.Do(req)
	if err != nil {
		return fmt.Errorf("recognizer: call %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("recognizer: %s returned status %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
