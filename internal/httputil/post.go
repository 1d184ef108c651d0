// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for calling JSON APIs.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps how much of a response body is read. OCR responses with
// inline images can be large, so the limit is generous.
var MaxBodyBytes int64 = 512 << 20

// Response is the status and body of a completed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Request describes a JSON POST.
type Request struct {
	URL       string
	Bearer    string
	UserAgent string
	Payload   any
}

// PostJSON marshals req.Payload, sends it as a single POST and returns the
// response status and body. There is no retry: a transport error is returned
// as-is and any HTTP status, including 4xx and 5xx, is returned in Response
// for the caller to interpret.
func PostJSON(ctx context.Context, client *http.Client, req Request) (*Response, error) {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
