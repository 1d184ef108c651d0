// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns office documents into PDF so the OCR API can read
// them. Conversion is delegated to an external office suite (LibreOffice)
// run as a subprocess.
package convert

import "context"

// Converter produces a PDF from a document on disk.
type Converter interface {
	// ConvertToPDF converts the file at inputPath and returns the PDF bytes.
	// Temporary files are removed before returning.
	ConvertToPDF(ctx context.Context, inputPath string) ([]byte, error)
}

// Func adapts a plain function to the Converter interface.
type Func func(ctx context.Context, inputPath string) ([]byte, error)

// ConvertToPDF calls f.
func (f Func) ConvertToPDF(ctx context.Context, inputPath string) ([]byte, error) {
	return f(ctx, inputPath)
}
