// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Page is one page of an OCR result: its Markdown and the images the
// Markdown refers to.
type Page struct {
	// Index is the zero-based page number reported by the API.
	Index int `json:"index" yaml:"index"`

	// Markdown is the recognised page content. Image placeholders appear as
	// ![alt](<image id>).
	Markdown string `json:"markdown" yaml:"markdown"`

	// Images lists the images referenced from Markdown, in response order.
	Images []Image `json:"images,omitempty" yaml:"images,omitempty"`
}

// Image is an image extracted from a page.
type Image struct {
	// ID is the identifier used as the Markdown placeholder (e.g. "img-0.jpeg").
	ID string `json:"id" yaml:"id"`

	// Base64 is the image payload, either bare base64 or a data URI. Empty
	// when the request did not ask for image data.
	Base64 string `json:"image_base64,omitempty" yaml:"-"`
}

// Usage is the accounting block returned with an OCR result.
type Usage struct {
	PagesProcessed int  `json:"pages_processed" yaml:"pages_processed"`
	DocSizeBytes   *int `json:"doc_size_bytes,omitempty" yaml:"doc_size_bytes,omitempty"`
}

// OCRResult is the parsed OCR response for a whole document.
type OCRResult struct {
	Model string `json:"model" yaml:"model"`
	Pages []Page `json:"pages" yaml:"pages"`
	Usage Usage  `json:"usage_info" yaml:"usage_info"`
}

// ImageCount returns the number of images across all pages.
func (r *OCRResult) ImageCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Images)
	}
	return n
}
