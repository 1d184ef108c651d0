// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/mistral-ocr/internal/convert"
	"github.com/pdiddy/mistral-ocr/internal/mistral"
	"github.com/pdiddy/mistral-ocr/internal/pipeline"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// Configuration keys. Flags bind to the same names so values can also come
// from the config file or MISTRAL_OCR_* environment variables.
const (
	keyImages      = "images"
	keyOutput      = "output"
	keyModel       = "model"
	keyTimeout     = "timeout"
	keyEndpoint    = "endpoint"
	keyLibreOffice = "libreoffice"
	keyMetadata    = "metadata"
	keyPDF         = "pdf"
	keyAPIKey      = "api-key"

	secretAPIKey = "mistral-api-key"
)

func registerRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP(keyImages, "i", string(types.ImagesNone), "image handling: none, separate, inline, or zip")
	f.StringP(keyOutput, "o", types.DefaultOutputPath, "output Markdown path (zip mode writes <output>.zip)")
	f.String(keyModel, types.DefaultModel, "OCR model identifier")
	f.Duration(keyTimeout, types.DefaultTimeout, "timeout for the OCR request and document conversion")
	f.String(keyEndpoint, types.DefaultEndpoint, "OCR API endpoint")
	f.String(keyLibreOffice, "", "path to the LibreOffice binary (default: search PATH and standard locations)")
	f.Bool(keyMetadata, false, "write a <stem>.meta.yaml summary next to the output")
	f.String(keyPDF, "", "input file (alternative to the positional argument)")

	mustBind(f.Lookup(keyImages), f.Lookup(keyOutput), f.Lookup(keyModel), f.Lookup(keyTimeout),
		f.Lookup(keyEndpoint), f.Lookup(keyLibreOffice), f.Lookup(keyMetadata), f.Lookup(keyPDF))
}

func mustBind(flags ...*pflag.Flag) {
	for _, fl := range flags {
		if err := viper.BindPFlag(fl.Name, fl); err != nil {
			panic(err)
		}
	}
}

// buildJob resolves the job from positional args, configuration and
// loaded secrets. The positional argument wins over --pdf.
func buildJob(v *viper.Viper, args []string, secrets map[string]string) (types.Job, error) {
	input := v.GetString(keyPDF)
	if len(args) > 0 {
		input = args[0]
	}
	if input == "" {
		return types.Job{}, types.NewError(types.ErrConfiguration, "buildJob",
			"an input file is required (mistral-ocr <input>)", nil)
	}

	mode, err := types.ParseImageMode(v.GetString(keyImages))
	if err != nil {
		return types.Job{}, err
	}

	apiKey := v.GetString(keyAPIKey)
	if apiKey == "" {
		apiKey = secrets[secretAPIKey]
	}

	job := types.Job{
		InputPath:     input,
		OutputPath:    v.GetString(keyOutput),
		ImageMode:     mode,
		Model:         v.GetString(keyModel),
		APIKey:        apiKey,
		Endpoint:      v.GetString(keyEndpoint),
		Timeout:       v.GetDuration(keyTimeout),
		ConverterPath: v.GetString(keyLibreOffice),
		WriteMetadata: v.GetBool(keyMetadata),
	}
	return job.WithDefaults(), nil
}

// lazyConverter locates LibreOffice on first use so PDF and image inputs
// never require it. Each conversion is bounded by timeout.
func lazyConverter(binPath string, timeout time.Duration) convert.Converter {
	return convert.Func(func(ctx context.Context, inputPath string) ([]byte, error) {
		lo, err := convert.NewLibreOffice(binPath)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return lo.ConvertToPDF(ctx, inputPath)
	})
}

func runOCR(cmd *cobra.Command, args []string) error {
	job, err := buildJob(viper.GetViper(), args, loadedSecrets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := mistral.New(job.APIKey, job.Endpoint, job.Timeout)
	client.UserAgent = "mistral-ocr/" + version

	_, err = pipeline.Run(ctx, job, pipeline.Deps{
		Converter: lazyConverter(job.ConverterPath, job.Timeout),
		OCR:       client,
	})
	return err
}
