// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one document through OCR: classify, convert if
// needed, submit, assemble and write. Each run makes at most one OCR request
// and fails fast; nothing is written when an earlier step fails, and the
// written outputs are removed again when the metadata sidecar fails.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/mistral-ocr/internal/classify"
	"github.com/pdiddy/mistral-ocr/internal/convert"
	"github.com/pdiddy/mistral-ocr/internal/logger"
	"github.com/pdiddy/mistral-ocr/internal/markdown"
	"github.com/pdiddy/mistral-ocr/internal/mistral"
	"github.com/pdiddy/mistral-ocr/internal/output"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// OCR submits a document and returns the parsed pages.
type OCR interface {
	Process(ctx context.Context, doc mistral.Document, opts mistral.Options) (*types.OCRResult, error)
}

// Deps are the external collaborators of a run. Converter is only used for
// office documents and may be nil otherwise.
type Deps struct {
	Converter convert.Converter
	OCR       OCR
}

// Summary describes a successful run.
type Summary struct {
	Input    string
	Output   string
	Kind     classify.Kind
	Pages    int
	Images   int
	Written  []string
	Duration time.Duration
}

// Run processes job. Configuration is validated before any file or network
// access, so a missing API key never reaches the OCR client.
func Run(ctx context.Context, job types.Job, deps Deps) (*Summary, error) {
	start := time.Now()
	log := logger.WithComponent("pipeline")

	job = job.WithDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if deps.OCR == nil {
		return nil, types.NewError(types.ErrConfiguration, "Run", "no OCR client configured", nil)
	}

	kind, ext, err := classify.Classify(job.InputPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(job.InputPath); err != nil {
		return nil, types.NewError(types.ErrConfiguration, "Run",
			fmt.Sprintf("File not found: %s", job.InputPath), err)
	}

	log.Debug().Str("input", job.InputPath).Stringer("kind", kind).Msg("classified input")

	doc, err := buildDocument(ctx, job.InputPath, kind, ext, deps.Converter)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("Sending OCR request to Mistral API...")
	res, err := deps.OCR.Process(ctx, doc, mistral.Options{
		Model:         job.Model,
		IncludeImages: job.ImageMode.NeedsImageData(),
	})
	if err != nil {
		return nil, err
	}

	log.Info().Msg("Processing response...")
	assembled, err := markdown.Assemble(res, job.ImageMode, output.Stem(job.OutputPath))
	if err != nil {
		return nil, err
	}

	written, err := output.Write(assembled, job.ImageMode, job.OutputPath)
	if err != nil {
		return nil, err
	}

	if job.WriteMetadata {
		p, err := output.WriteMetadata(output.Metadata{
			Source:    job.InputPath,
			Output:    written[0],
			Model:     res.Model,
			ImageMode: job.ImageMode,
			Pages:     assembled.Pages,
			Images:    assembled.Images,
			Usage:     res.Usage,
		}, job.OutputPath)
		if err != nil {
			output.Remove(job.ImageMode, job.OutputPath, written)
			return nil, err
		}
		written = append(written, p)
	}

	sum := &Summary{
		Input:    job.InputPath,
		Output:   written[0],
		Kind:     kind,
		Pages:    assembled.Pages,
		Images:   assembled.Images,
		Written:  written,
		Duration: time.Since(start),
	}
	log.Info().
		Int("pages", sum.Pages).
		Int("images", sum.Images).
		Dur("elapsed", sum.Duration).
		Msgf("Done! Output written to %s", sum.Output)
	return sum, nil
}

// buildDocument reads the input, converting office documents first, and
// wraps it in the document variant the API expects.
func buildDocument(ctx context.Context, path string, kind classify.Kind, ext string, conv convert.Converter) (mistral.Document, error) {
	log := logger.WithComponent("pipeline")
	name := filepath.Base(path)

	if kind.NeedsConversion() {
		if conv == nil {
			return nil, types.NewError(types.ErrConverterUnavailable, "Run",
				fmt.Sprintf("no converter available for .%s", ext), nil)
		}
		log.Info().Msgf("Converting .%s to PDF via LibreOffice...", ext)
		pdf, err := conv.ConvertToPDF(ctx, path)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Encoding file...")
		return mistral.NewPDFDocument(pdf, name), nil
	}

	log.Info().Msg("Encoding file...")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "Run",
			fmt.Sprintf("File not found: %s", path), err)
	}

	switch kind {
	case classify.KindPDF:
		return mistral.NewPDFDocument(data, name), nil
	case classify.KindImage:
		return mistral.NewImageDocument(data, classify.MIMEType(ext)), nil
	default:
		return nil, types.NewError(types.ErrUnsupportedFileType, "Run",
			fmt.Sprintf(".%s for %s", ext, path), nil)
	}
}
