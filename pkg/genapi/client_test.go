package genapi

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magic-mirror/internal/types"
	apperrors "magic-mirror/pkg/errors"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSubmitTryOn(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("person_image")
		require.NoError(t, err, "person_image part missing")
		_, _, err = r.FormFile("clothing_image")
		require.NoError(t, err, "clothing_image part missing")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id":"t1","status":"processing"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	taskID, err := client.Submit(context.Background(), types.FeatureTryOn, map[string][]byte{
		"person_image":   []byte("person-bytes"),
		"clothing_image": []byte("clothing-bytes"),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "t1", taskID)
	assert.Equal(t, "/try-on/", gotPath)
}

func TestSubmitHairStyleSendsPromptField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "curly bob", r.FormValue("hair_style"))
		w.Write([]byte(`{"task_id":"t2","status":"processing"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	taskID, err := client.Submit(context.Background(), types.FeatureHairStyle,
		map[string][]byte{"image": []byte("img")}, "curly bob")
	require.NoError(t, err)
	assert.Equal(t, "t2", taskID)
}

func TestSubmitMissingImageDoesNotCallServer(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	_, err := client.Submit(context.Background(), types.FeatureTryOn,
		map[string][]byte{"person_image": []byte("img")}, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingImage))
	assert.False(t, called)
}

func TestSubmitErrors(t *testing.T) {
	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantCode: apperrors.CodeSubmitFailed,
		},
		{
			name: "missing task id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"processing"}`))
			},
			wantCode: apperrors.CodeSubmitBadResponse,
		},
		{
			name: "non json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>oops</html>`))
			},
			wantCode: apperrors.CodeSubmitBadResponse,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			client := NewClient(server.URL, "", "")
			_, err := client.Submit(context.Background(), types.FeatureFigurine,
				map[string][]byte{"image": []byte("img")}, "")
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tc.wantCode), "got %v", err)
		})
	}
}

func TestGetStatusClassification(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantState  JobState
		wantMsg    string
		wantResult string
	}{
		{
			name:      "processing with message",
			body:      `{"task_id":"t1","status":"processing","message":"rendering"}`,
			wantState: JobStateProcessing,
			wantMsg:   "rendering",
		},
		{
			name:       "completed with result_url",
			body:       `{"task_id":"t1","status":"completed","result_url":"https://x/y.jpg"}`,
			wantState:  JobStateCompleted,
			wantResult: "https://x/y.jpg",
		},
		{
			name:       "completed with result alias",
			body:       `{"task_id":"t1","status":"completed","result":"https://x/y.jpg"}`,
			wantState:  JobStateCompleted,
			wantResult: "https://x/y.jpg",
		},
		{
			name:       "completed with output_url alias",
			body:       `{"task_id":"t1","status":"completed","output_url":"https://x/z.jpg"}`,
			wantState:  JobStateCompleted,
			wantResult: "https://x/z.jpg",
		},
		{
			name:       "result_url preferred over aliases",
			body:       `{"task_id":"t1","status":"completed","result_url":"https://x/canonical.jpg","url":"https://x/other.jpg"}`,
			wantState:  JobStateCompleted,
			wantResult: "https://x/canonical.jpg",
		},
		{
			name:      "failed with error field",
			body:      `{"task_id":"t1","status":"failed","error":"face not detected"}`,
			wantState: JobStateFailed,
			wantMsg:   "face not detected",
		},
		{
			name:      "failed without error falls back to message",
			body:      `{"task_id":"t1","status":"failed","message":"internal error"}`,
			wantState: JobStateFailed,
			wantMsg:   "internal error",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/status/t1", r.URL.Path)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "", "")
			status, err := client.GetStatus(context.Background(), "t1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantState, status.State)
			assert.Equal(t, tc.wantMsg, status.Message)
			assert.Equal(t, tc.wantResult, status.ResultURL)
		})
	}
}

func TestGetStatusUnrecognizedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"task_id":"t1","status":"exploded"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	_, err := client.GetStatus(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodePollBadResponse))
}

func TestFetchResultAndDecode(t *testing.T) {
	payload := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/result/t1", r.URL.Path)
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	data, err := client.FetchResult(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	img, format, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestFetchResultErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	_, err := client.FetchResult(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeFetchFailed))
}

func TestDecodeImageGarbage(t *testing.T) {
	_, _, err := DecodeImage([]byte("not an image"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeImageDecode))
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		w.Write([]byte(`{"service":"magic-mirror-api","version":"1.2.0"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")
	info, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "magic-mirror-api", info["service"])
}
