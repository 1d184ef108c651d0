// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes an assembled document to disk in the layout required
// by the image mode: a single Markdown file, a Markdown file with a sibling
// image directory, or a zip archive.
package output

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mistral-ocr/internal/markdown"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// Stem returns the output file name without directory or extension.
func Stem(outputPath string) string {
	base := filepath.Base(outputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ZipPath returns the archive path for zip mode: outputPath with its
// extension replaced by .zip.
func ZipPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".zip"
}

// Write stores doc for mode at outputPath and returns the paths written,
// Markdown or archive first. Parent directories are created and existing
// files are overwritten. Failures are types.ErrOutputWrite.
func Write(doc *markdown.Result, mode types.ImageMode, outputPath string) ([]string, error) {
	switch mode {
	case types.ImagesNone, types.ImagesInline:
		if err := writeFile(outputPath, []byte(doc.Markdown)); err != nil {
			return nil, err
		}
		return []string{outputPath}, nil

	case types.ImagesSeparate:
		return writeSeparate(doc, outputPath)

	case types.ImagesZip:
		archive := ZipPath(outputPath)
		if err := writeZip(doc, Stem(outputPath)+".md", archive); err != nil {
			return nil, err
		}
		return []string{archive}, nil

	default:
		return nil, types.NewError(types.ErrConfiguration, "Write",
			fmt.Sprintf("invalid image mode %q", mode), nil)
	}
}

// Remove deletes the files a previous Write reported, and in separate mode
// the image directory when it is left empty. Errors are ignored.
func Remove(mode types.ImageMode, outputPath string, written []string) {
	for _, p := range written {
		_ = os.Remove(p)
	}
	if mode == types.ImagesSeparate {
		_ = os.Remove(filepath.Join(filepath.Dir(outputPath), markdown.ImagesDirName(Stem(outputPath))))
	}
}

// writeSeparate writes the Markdown, then each asset relative to it. The
// image directory is created even when the document has no images.
func writeSeparate(doc *markdown.Result, outputPath string) ([]string, error) {
	dir := filepath.Dir(outputPath)
	imagesDir := filepath.Join(dir, markdown.ImagesDirName(Stem(outputPath)))
	if err := mkdirAll(imagesDir); err != nil {
		return nil, err
	}

	if err := writeFile(outputPath, []byte(doc.Markdown)); err != nil {
		return nil, err
	}
	written := []string{outputPath}

	for _, a := range doc.Assets {
		p := filepath.Join(dir, filepath.FromSlash(a.Name))
		if err := writeFile(p, a.Data); err != nil {
			return nil, err
		}
		written = append(written, p)
	}
	return written, nil
}

// writeZip builds the archive in memory and writes it in one step so a
// failure never leaves a truncated archive behind. Entries have no
// modification time; the same document always yields the same bytes.
func writeZip(doc *markdown.Result, mdName, archivePath string) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if err := add(mdName, []byte(doc.Markdown)); err != nil {
		return wrapWrite(archivePath, err)
	}
	for _, a := range doc.Assets {
		if err := add(a.Name, a.Data); err != nil {
			return wrapWrite(archivePath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return wrapWrite(archivePath, err)
	}
	return writeFile(archivePath, buf.Bytes())
}

// Metadata is the sidecar summary written with --metadata.
type Metadata struct {
	Source    string          `yaml:"source"`
	Output    string          `yaml:"output"`
	Model     string          `yaml:"model"`
	ImageMode types.ImageMode `yaml:"image_mode"`
	Pages     int             `yaml:"pages"`
	Images    int             `yaml:"images"`
	Usage     types.Usage     `yaml:"usage_info"`
}

// MetadataPath returns the sidecar path for outputPath.
func MetadataPath(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), Stem(outputPath)+".meta.yaml")
}

// WriteMetadata writes meta as YAML next to outputPath and returns the path.
func WriteMetadata(meta Metadata, outputPath string) (string, error) {
	p := MetadataPath(outputPath)
	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", types.NewError(types.ErrOutputWrite, "WriteMetadata", "encoding metadata", err)
	}
	if err := writeFile(p, data); err != nil {
		return "", err
	}
	return p, nil
}

func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.NewError(types.ErrOutputWrite, "Write", "creating directory "+dir, err)
	}
	return nil
}

func writeFile(p string, data []byte) error {
	if err := mkdirAll(filepath.Dir(p)); err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return wrapWrite(p, err)
	}
	return nil
}

func wrapWrite(p string, err error) error {
	return types.NewError(types.ErrOutputWrite, "Write", "writing "+p, err)
}
