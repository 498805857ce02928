package plate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/integra-gate/internal/camera"
)

func visionReply(text string) string {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			},
		}},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestVisionExtractor(t *testing.T) {
	ctx := context.Background()
	frame := camera.NewFrame("f1", []byte{0xff, 0xd8, 0xff}, time.Now())

	t.Run("returns trimmed plate text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))

			var req visionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Contents, 1)
			assert.Contains(t, req.Contents[0].Parts[0].Text, "NO_PLATE_DETECTED")

			w.Write([]byte(visionReply("  AB123CD \n")))
		}))
		defer srv.Close()

		e := NewVisionExtractor(srv.URL, "test-key", srv.Client())
		text, err := e.ExtractText(ctx, frame)
		require.NoError(t, err)
		assert.Equal(t, "AB123CD", text)
	})

	t.Run("no plate marker maps to empty text without error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(visionReply("NO_PLATE_DETECTED")))
		}))
		defer srv.Close()

		e := NewVisionExtractor(srv.URL, "test-key", srv.Client())
		text, err := e.ExtractText(ctx, frame)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("throttling yields ThrottleError with Retry-After", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		e := NewVisionExtractor(srv.URL, "test-key", srv.Client())
		_, err := e.ExtractText(ctx, frame)
		require.Error(t, err)

		var tErr *ThrottleError
		require.True(t, errors.As(err, &tErr))
		assert.Equal(t, 7*time.Second, tErr.RetryAfter)
	})

	t.Run("server error is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		e := NewVisionExtractor(srv.URL, "test-key", srv.Client())
		_, err := e.ExtractText(ctx, frame)
		assert.Error(t, err)
	})

	t.Run("missing api key fails fast", func(t *testing.T) {
		e := NewVisionExtractor("http://localhost:1", "", nil)
		_, err := e.ExtractText(ctx, frame)
		assert.Error(t, err)
	})
}
