// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mistral

import (
	"encoding/base64"
	"encoding/json"
)

// Document is the payload submitted for OCR. The API distinguishes PDF
// documents from images with a "type" tag; DocumentURL and ImageURL are the
// two variants.
type Document interface {
	// Type returns the API tag for the variant.
	Type() string
	json.Marshaler
}

// DocumentURL submits a PDF as a data URI.
type DocumentURL struct {
	URL  string
	Name string
}

// Type returns "document_url".
func (d DocumentURL) Type() string { return "document_url" }

// MarshalJSON encodes the tagged document_url variant.
func (d DocumentURL) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string `json:"type"`
		DocumentURL  string `json:"document_url"`
		DocumentName string `json:"document_name"`
	}{d.Type(), d.URL, d.Name})
}

// ImageURL submits an image as a data URI.
type ImageURL struct {
	URL string
}

// Type returns "image_url".
func (i ImageURL) Type() string { return "image_url" }

// MarshalJSON encodes the tagged image_url variant.
func (i ImageURL) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		ImageURL string `json:"image_url"`
	}{i.Type(), i.URL})
}

// DataURI encodes data as data:<mime>;base64,<payload>.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// NewPDFDocument builds a document_url variant for PDF bytes. name is the
// file name reported to the API.
func NewPDFDocument(data []byte, name string) DocumentURL {
	return DocumentURL{URL: DataURI("application/pdf", data), Name: name}
}

// NewImageDocument builds an image_url variant for image bytes.
func NewImageDocument(data []byte, mime string) ImageURL {
	return ImageURL{URL: DataURI(mime, data)}
}
