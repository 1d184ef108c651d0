// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mistral

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mistral-ocr/pkg/types"
)

const twoPageResponse = `{
  "pages": [
    {
      "index": 0,
      "markdown": "# Title\n\n![img-0.jpeg](img-0.jpeg)\n\nBody text.",
      "images": [
        {"id": "img-0.jpeg", "top_left_x": 10, "top_left_y": 20, "bottom_right_x": 110, "bottom_right_y": 220, "image_base64": "data:image/jpeg;base64,/9j/AA=="}
      ],
      "dimensions": {"dpi": 200, "height": 2200, "width": 1700}
    },
    {"index": 1, "markdown": "Second page.", "images": []}
  ],
  "model": "mistral-ocr-2505",
  "usage_info": {"pages_processed": 2, "doc_size_bytes": 12345}
}`

func newTestClient(ts *httptest.Server) *Client {
	c := New("test-key", ts.URL, 5*time.Second)
	c.HTTP = ts.Client()
	return c
}

func TestProcess_PDFRequestShape(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral-ocr-latest", body["model"])
		assert.Equal(t, true, body["include_image_base64"])

		doc, ok := body["document"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "document_url", doc["type"])
		assert.Equal(t, "data:application/pdf;base64,JVBERi0=", doc["document_url"])
		assert.Equal(t, "scan.pdf", doc["document_name"])

		_, _ = io.WriteString(w, twoPageResponse)
	}))
	defer ts.Close()

	res, err := newTestClient(ts).Process(context.Background(),
		NewPDFDocument([]byte("%PDF-"), "scan.pdf"),
		Options{Model: "mistral-ocr-latest", IncludeImages: true})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Len(t, res.Pages, 2)
	assert.Equal(t, "mistral-ocr-2505", res.Model)
	assert.Equal(t, 2, res.Usage.PagesProcessed)
	require.NotNil(t, res.Usage.DocSizeBytes)
	assert.Equal(t, 12345, *res.Usage.DocSizeBytes)

	p0 := res.Pages[0]
	assert.Equal(t, 0, p0.Index)
	require.Len(t, p0.Images, 1)
	assert.Equal(t, "img-0.jpeg", p0.Images[0].ID)
	assert.Equal(t, "data:image/jpeg;base64,/9j/AA==", p0.Images[0].Base64)
	assert.Empty(t, res.Pages[1].Images)
}

func TestProcess_ImageRequestOmitsIncludeFlag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, present := body["include_image_base64"]
		assert.False(t, present, "include_image_base64 must be omitted when images are not requested")

		doc := body["document"].(map[string]any)
		assert.Equal(t, "image_url", doc["type"])
		assert.Equal(t, "data:image/png;base64,iVBO", doc["image_url"])
		_, hasName := doc["document_name"]
		assert.False(t, hasName)

		_, _ = io.WriteString(w, `{"pages":[{"index":0,"markdown":"hi"}]}`)
	}))
	defer ts.Close()

	res, err := newTestClient(ts).Process(context.Background(),
		NewImageDocument([]byte{0x89, 'P', 'N'}, "image/png"),
		Options{Model: "mistral-ocr-latest"})
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "hi", res.Pages[0].Markdown)
}

func TestProcess_APIErrorPreservesStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusUnprocessableEntity, http.StatusTooManyRequests, http.StatusBadGateway} {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"message":"denied"}`+"\n")
		}))

		_, err := newTestClient(ts).Process(context.Background(), NewPDFDocument(nil, "a.pdf"), Options{Model: "m"})
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrAPI)
		assert.Equal(t, status, types.StatusCode(err))
		assert.Contains(t, err.Error(), `{"message":"denied"}`)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry on HTTP %d", status)
		ts.Close()
	}
}

func TestProcess_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := newTestClient(ts)
	ts.Close()

	_, err := c.Process(context.Background(), NewPDFDocument(nil, "a.pdf"), Options{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNetwork)
	assert.NotErrorIs(t, err, types.ErrAPI)
}

func TestProcess_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := newTestClient(ts)
	c.HTTP.Timeout = 20 * time.Millisecond

	_, err := c.Process(context.Background(), NewPDFDocument(nil, "a.pdf"), Options{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNetwork)
	assert.Contains(t, err.Error(), "timed out")
}

func TestProcess_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>gateway</html>`)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).Process(context.Background(), NewPDFDocument(nil, "a.pdf"), Options{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrResponseParse)
}

func TestParseResponse_ShapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"not json", `nope`, "failed to parse"},
		{"missing pages", `{"model":"x"}`, `no "pages"`},
		{"pages wrong type", `{"pages":{"index":0}}`, "failed to parse"},
		{"page missing index", `{"pages":[{"markdown":"a"}]}`, `no "index"`},
		{"page missing markdown", `{"pages":[{"index":3}]}`, `page 3 has no "markdown"`},
		{"markdown wrong type", `{"pages":[{"index":0,"markdown":7}]}`, "failed to parse"},
		{"image missing id", `{"pages":[{"index":0,"markdown":"a","images":[{"image_base64":"AA=="}]}]}`, `no "id"`},
		{"image empty id", `{"pages":[{"index":1,"markdown":"a","images":[{"id":""}]}]}`, "image 0 on page 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrResponseParse)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseResponse_EmptyPagesAndNullImage(t *testing.T) {
	res, err := ParseResponse([]byte(`{"pages":[{"index":0,"markdown":"![a](img-0.png)","images":[{"id":"img-0.png","image_base64":null}]}]}`))
	require.NoError(t, err)
	require.Len(t, res.Pages[0].Images, 1)
	assert.Empty(t, res.Pages[0].Images[0].Base64)

	res, err = ParseResponse([]byte(`{"pages":[]}`))
	require.NoError(t, err)
	assert.Empty(t, res.Pages)
}

func TestDocumentMarshal(t *testing.T) {
	b, err := json.Marshal(NewPDFDocument([]byte("abc"), "x.pdf"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"document_url","document_url":"data:application/pdf;base64,YWJj","document_name":"x.pdf"}`, string(b))

	b, err = json.Marshal(NewImageDocument([]byte("abc"), "image/webp"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"image_url","image_url":"data:image/webp;base64,YWJj"}`, string(b))
}
