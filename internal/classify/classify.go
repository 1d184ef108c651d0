// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides how an input document is submitted for OCR based
// on its file extension.
package classify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// Kind is the handling path for an input file.
type Kind int

const (
	KindUnknown Kind = iota
	// KindPDF is sent to the API directly as a document.
	KindPDF
	// KindImage is sent to the API directly as an image.
	KindImage
	// KindOffice must be converted to PDF first.
	KindOffice
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	case KindOffice:
		return "office"
	default:
		return "unknown"
	}
}

// NeedsConversion reports whether files of this kind go through the
// document converter.
func (k Kind) NeedsConversion() bool { return k == KindOffice }

// ImageExtensions are sent as image_url documents.
var ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "tif", "webp"}

// OfficeExtensions are converted to PDF with LibreOffice before submission.
var OfficeExtensions = []string{
	"doc", "docx", "odt", "rtf", "txt", "html", "htm",
	"pptx", "ppt", "odp",
	"xlsx", "xls", "ods", "csv",
	"epub",
}

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"webp": "image/webp",
}

var kinds = func() map[string]Kind {
	m := map[string]Kind{"pdf": KindPDF}
	for _, e := range ImageExtensions {
		m[e] = KindImage
	}
	for _, e := range OfficeExtensions {
		m[e] = KindOffice
	}
	return m
}()

// Extension returns the lower-cased extension of path without the leading dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Classify determines the handling path for the file at path and returns it
// together with the normalized extension. Unsupported extensions fail with
// types.ErrUnsupportedFileType.
func Classify(path string) (Kind, string, error) {
	ext := Extension(path)
	if k, ok := kinds[ext]; ok {
		return k, ext, nil
	}
	shown := "." + ext
	if ext == "" {
		shown = "(no extension)"
	}
	return KindUnknown, ext, types.NewError(types.ErrUnsupportedFileType, "Classify",
		fmt.Sprintf("%s for %s (expected pdf, image, or document: docx, odt, pptx, xlsx, etc.)", shown, path), nil)
}

// MIMEType returns the media type for a file extension. Unknown extensions
// map to application/octet-stream.
func MIMEType(ext string) string {
	if m, ok := mimeTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return m
	}
	return "application/octet-stream"
}
