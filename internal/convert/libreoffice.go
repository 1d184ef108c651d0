// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/pdiddy/mistral-ocr/internal/logger"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// binaryNames are looked up on PATH, in order.
var binaryNames = []string{"libreoffice", "soffice"}

// installPaths lists well-known LibreOffice locations per OS, tried after PATH.
var installPaths = map[string][]string{
	"darwin": {
		"/Applications/LibreOffice.app/Contents/MacOS/soffice",
		"/opt/homebrew/bin/soffice",
	},
	"windows": {
		`C:\Program Files\LibreOffice\program\soffice.exe`,
		`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
	},
	"linux": {
		"/usr/bin/libreoffice",
		"/usr/bin/soffice",
	},
}

const installHint = "install it from https://www.libreoffice.org/ " +
	"(only needed for office documents; PDF and image files work without it)"

// executor abstracts process execution and file probing for testing.
type executor interface {
	LookPath(file string) (string, error)
	Exists(path string) bool
	Run(ctx context.Context, name string, args []string, stdout, stderr *bytes.Buffer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr *bytes.Buffer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

var defaultExec executor = &osExecutor{}

// LibreOffice converts documents by running LibreOffice headless.
type LibreOffice struct {
	bin     string
	exec    executor
	tempDir string // parent for per-conversion output dirs; "" means os.TempDir
}

// NewLibreOffice locates the LibreOffice binary. When binPath is non-empty it
// is used as-is (a bare name is resolved on PATH). Otherwise libreoffice and
// soffice are looked up on PATH, followed by OS-specific install locations.
// Returns types.ErrConverterUnavailable when nothing is found.
func NewLibreOffice(binPath string) (*LibreOffice, error) {
	return newLibreOffice(defaultExec, goruntime.GOOS, binPath)
}

func newLibreOffice(ex executor, goos, binPath string) (*LibreOffice, error) {
	bin, err := locate(ex, goos, binPath)
	if err != nil {
		return nil, err
	}
	return &LibreOffice{bin: bin, exec: ex}, nil
}

func locate(ex executor, goos, binPath string) (string, error) {
	const op = "LocateConverter"
	if binPath != "" {
		if ex.Exists(binPath) {
			return binPath, nil
		}
		if !strings.ContainsAny(binPath, `/\`) {
			if p, err := ex.LookPath(binPath); err == nil {
				return p, nil
			}
		}
		return "", types.NewError(types.ErrConverterUnavailable, op,
			fmt.Sprintf("LibreOffice not found at %s", binPath), nil)
	}

	for _, name := range binaryNames {
		if p, err := ex.LookPath(name); err == nil {
			return p, nil
		}
	}
	for _, p := range installPaths[goos] {
		if ex.Exists(p) {
			return p, nil
		}
	}
	return "", types.NewError(types.ErrConverterUnavailable, op,
		"LibreOffice not found; "+installHint, nil)
}

// Bin returns the resolved LibreOffice binary path.
func (l *LibreOffice) Bin() string { return l.bin }

// ConvertToPDF runs `<bin> --headless --convert-to pdf --outdir <tmp> <input>`
// and returns the produced PDF. The temporary output directory is always
// removed. A single attempt is made.
func (l *LibreOffice) ConvertToPDF(ctx context.Context, inputPath string) ([]byte, error) {
	const op = "ConvertToPDF"

	outDir, err := os.MkdirTemp(l.tempDir, "mistral-ocr-*")
	if err != nil {
		return nil, types.NewError(types.ErrConversionFailed, op, "creating temporary directory", err)
	}
	defer os.RemoveAll(outDir)

	args := []string{"--headless", "--convert-to", "pdf", "--outdir", outDir, inputPath}
	log := logger.WithComponent("convert")
	log.Debug().Str("bin", l.bin).Strs("args", args).Msg("running LibreOffice")

	var stdout, stderr bytes.Buffer
	if err := l.exec.Run(ctx, l.bin, args, &stdout, &stderr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, types.NewError(types.ErrConversionFailed, op,
				fmt.Sprintf("LibreOffice timed out converting %s", inputPath), ctxErr)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, types.NewError(types.ErrConverterUnavailable, op,
				fmt.Sprintf("failed to run LibreOffice at %s", l.bin), err)
		}
		detail := fmt.Sprintf("LibreOffice failed converting %s", inputPath)
		if d := diagnostics(&stdout, &stderr); d != "" {
			detail += ": " + d
		}
		return nil, types.NewError(types.ErrConversionFailed, op, detail, err)
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	pdfPath := filepath.Join(outDir, stem+".pdf")
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		detail := fmt.Sprintf("LibreOffice did not produce expected PDF at %s", pdfPath)
		if d := diagnostics(&stdout, &stderr); d != "" {
			detail += ": " + d
		}
		return nil, types.NewError(types.ErrConversionFailed, op, detail, err)
	}
	return data, nil
}

// diagnostics returns the captured process output, stderr first.
func diagnostics(stdout, stderr *bytes.Buffer) string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(stderr.String()); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(stdout.String()); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}
