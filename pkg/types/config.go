// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultOutputPath is where Markdown is written when no --output is given.
	DefaultOutputPath = "ocr_output.md"

	// DefaultModel is the Mistral OCR model used when none is configured.
	DefaultModel = "mistral-ocr-latest"

	// DefaultEndpoint is the Mistral OCR API endpoint.
	DefaultEndpoint = "https://api.mistral.ai/v1/ocr"

	// DefaultTimeout bounds the single OCR request and the office conversion.
	DefaultTimeout = 300 * time.Second

	// APIKeyEnv is the environment variable holding the Mistral API key.
	APIKeyEnv = "MISTRAL_API_KEY"
)

// ImageMode selects how images extracted by the OCR service appear in the
// Markdown output.
type ImageMode string

const (
	// ImagesNone drops image references from the output.
	ImagesNone ImageMode = "none"
	// ImagesSeparate writes each image to <stem>_images/ next to the Markdown.
	ImagesSeparate ImageMode = "separate"
	// ImagesInline embeds each image as a base64 data URI.
	ImagesInline ImageMode = "inline"
	// ImagesZip bundles the Markdown and images into a single .zip archive.
	ImagesZip ImageMode = "zip"
)

// ImageModes lists every accepted image mode in display order.
var ImageModes = []ImageMode{ImagesNone, ImagesSeparate, ImagesInline, ImagesZip}

// ParseImageMode converts a flag value to an ImageMode. Matching is
// case-insensitive; the empty string selects ImagesNone.
func ParseImageMode(s string) (ImageMode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ImagesNone, nil
	}
	for _, m := range ImageModes {
		if ImageMode(v) == m {
			return m, nil
		}
	}
	return "", NewError(ErrConfiguration, "ParseImageMode",
		fmt.Sprintf("invalid image mode %q (expected one of %s)", s, joinModes()), nil)
}

// NeedsImageData reports whether the OCR request must ask for base64 image
// payloads.
func (m ImageMode) NeedsImageData() bool {
	return m != ImagesNone
}

func (m ImageMode) String() string { return string(m) }

func joinModes() string {
	names := make([]string, len(ImageModes))
	for i, m := range ImageModes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Job is the configuration for one OCR invocation. It is built once from
// flags, config file, and environment, then passed explicitly through the
// pipeline.
type Job struct {
	// InputPath is the document to recognise (PDF, image, or office file).
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the Markdown destination. In zip mode the archive is
	// written to the same path with a .zip extension.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// ImageMode controls how extracted images are represented.
	ImageMode ImageMode `json:"image_mode" yaml:"image_mode"`

	// Model is the Mistral OCR model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the OCR API. Never serialized.
	APIKey string `json:"-" yaml:"-"`

	// Endpoint is the OCR API URL.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Timeout bounds the HTTP request and the office-suite subprocess.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// ConverterPath is an explicit path to the LibreOffice binary. When
	// empty the binary is searched for on PATH and in well-known locations.
	ConverterPath string `json:"converter_path,omitempty" yaml:"converter_path,omitempty"`

	// WriteMetadata enables the <stem>.meta.yaml sidecar.
	WriteMetadata bool `json:"write_metadata" yaml:"write_metadata"`
}

// WithDefaults returns a copy of j with unset optional fields filled in.
func (j Job) WithDefaults() Job {
	if j.OutputPath == "" {
		j.OutputPath = DefaultOutputPath
	}
	if m, err := ParseImageMode(string(j.ImageMode)); err == nil {
		j.ImageMode = m
	}
	if j.Model == "" {
		j.Model = DefaultModel
	}
	if j.Endpoint == "" {
		j.Endpoint = DefaultEndpoint
	}
	if j.Timeout <= 0 {
		j.Timeout = DefaultTimeout
	}
	return j
}

// Validate checks that the job can run. All failures are configuration
// errors and are reported before any file or network access.
func (j Job) Validate() error {
	const op = "Validate"
	if strings.TrimSpace(j.InputPath) == "" {
		return NewError(ErrConfiguration, op, "input path is required", nil)
	}
	if strings.TrimSpace(j.OutputPath) == "" {
		return NewError(ErrConfiguration, op, "output path is required", nil)
	}
	if _, err := ParseImageMode(string(j.ImageMode)); err != nil || j.ImageMode == "" {
		return NewError(ErrConfiguration, op,
			fmt.Sprintf("invalid image mode %q (expected one of %s)", j.ImageMode, joinModes()), nil)
	}
	if strings.TrimSpace(j.Model) == "" {
		return NewError(ErrConfiguration, op, "model is required", nil)
	}
	if strings.TrimSpace(j.APIKey) == "" {
		return NewError(ErrConfiguration, op, APIKeyEnv+" environment variable is not set", nil)
	}
	return nil
}
