// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mistral is a client for the Mistral OCR API. It submits one
// base64-encoded document per request and parses the paginated Markdown
// response.
package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/mistral-ocr/internal/httputil"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// DefaultUserAgent is sent when Client.UserAgent is empty.
const DefaultUserAgent = "mistral-ocr/dev"

// Options are per-request settings.
type Options struct {
	// Model is the OCR model identifier.
	Model string

	// IncludeImages asks the API to return base64 payloads for extracted images.
	IncludeImages bool
}

// Client calls the OCR endpoint. The zero value is not usable; build one
// with New.
type Client struct {
	HTTP      *http.Client
	Endpoint  string
	APIKey    string
	UserAgent string
}

// New creates a client for endpoint authenticated with apiKey. timeout bounds
// the whole request including reading the response.
func New(apiKey, endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = types.DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Endpoint:  endpoint,
		APIKey:    apiKey,
		UserAgent: DefaultUserAgent,
	}
}

type ocrRequest struct {
	Model              string   `json:"model"`
	Document           Document `json:"document"`
	IncludeImageBase64 *bool    `json:"include_image_base64,omitempty"`
}

// Process submits doc and returns the parsed pages. Exactly one HTTP request
// is made. Failures are typed: types.ErrNetwork when the request cannot be
// completed, types.ErrAPI (status preserved) for non-2xx responses, and
// types.ErrResponseParse for a body that is not a well-formed OCR response.
func (c *Client) Process(ctx context.Context, doc Document, opts Options) (*types.OCRResult, error) {
	const op = "Process"

	req := ocrRequest{Model: opts.Model, Document: doc}
	if opts.IncludeImages {
		include := true
		req.IncludeImageBase64 = &include
	}

	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	resp, err := httputil.PostJSON(ctx, c.HTTP, httputil.Request{
		URL:       c.Endpoint,
		Bearer:    c.APIKey,
		UserAgent: ua,
		Payload:   req,
	})
	if err != nil {
		detail := fmt.Sprintf("OCR request to %s failed", c.Endpoint)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			detail = fmt.Sprintf("OCR request to %s timed out", c.Endpoint)
		}
		return nil, types.NewError(types.ErrNetwork, op, detail, err)
	}

	if !resp.OK() {
		return nil, types.NewAPIError(op, resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}

	return ParseResponse(resp.Body)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Raw response shapes. Pointers distinguish missing fields from zero values
// so shape drift is caught at parse time.
type rawResponse struct {
	Pages     *[]rawPage  `json:"pages"`
	Model     string      `json:"model"`
	UsageInfo types.Usage `json:"usage_info"`
}

type rawPage struct {
	Index    *int       `json:"index"`
	Markdown *string    `json:"markdown"`
	Images   []rawImage `json:"images"`
}

type rawImage struct {
	ID          *string `json:"id"`
	ImageBase64 *string `json:"image_base64"`
}

// ParseResponse decodes an OCR response body. It fails with
// types.ErrResponseParse when the JSON is malformed or a required field
// (pages, page index, page markdown, image id) is missing.
func ParseResponse(body []byte) (*types.OCRResult, error) {
	const op = "ParseResponse"

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, types.NewError(types.ErrResponseParse, op, "failed to parse OCR response", err)
	}
	if raw.Pages == nil {
		return nil, types.NewError(types.ErrResponseParse, op, `response has no "pages" field`, nil)
	}

	result := &types.OCRResult{
		Model: raw.Model,
		Usage: raw.UsageInfo,
		Pages: make([]types.Page, 0, len(*raw.Pages)),
	}
	for i, rp := range *raw.Pages {
		if rp.Index == nil {
			return nil, types.NewError(types.ErrResponseParse, op,
				fmt.Sprintf(`page %d has no "index" field`, i), nil)
		}
		if rp.Markdown == nil {
			return nil, types.NewError(types.ErrResponseParse, op,
				fmt.Sprintf(`page %d has no "markdown" field`, *rp.Index), nil)
		}
		page := types.Page{Index: *rp.Index, Markdown: *rp.Markdown}
		for j, ri := range rp.Images {
			if ri.ID == nil || *ri.ID == "" {
				return nil, types.NewError(types.ErrResponseParse, op,
					fmt.Sprintf(`image %d on page %d has no "id" field`, j, *rp.Index), nil)
			}
			img := types.Image{ID: *ri.ID}
			if ri.ImageBase64 != nil {
				img.Base64 = *ri.ImageBase64
			}
			page.Images = append(page.Images, img)
		}
		result.Pages = append(result.Pages, page)
	}
	return result, nil
}
