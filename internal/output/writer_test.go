// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mistral-ocr/internal/markdown"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

func sampleDoc(prefix string) *markdown.Result {
	return &markdown.Result{
		Markdown: "![a](" + prefix + "/img-0.jpeg)\n\n![b](" + prefix + "/img-1.png)\n\n",
		Assets: []markdown.Asset{
			{ID: "img-0.jpeg", Name: prefix + "/img-0.jpeg", Data: []byte("jpeg-bytes")},
			{ID: "img-1.png", Name: prefix + "/img-1.png", Data: []byte("png-bytes")},
		},
		Pages:  1,
		Images: 2,
	}
}

func TestStemAndZipPath(t *testing.T) {
	assert.Equal(t, "report", Stem("out/report.md"))
	assert.Equal(t, "report", Stem("report"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.md"))
	assert.Equal(t, filepath.Join("out", "report.zip"), ZipPath(filepath.Join("out", "report.md")))
	assert.Equal(t, "report.zip", ZipPath("report"))
}

func TestWrite_SingleFileModes(t *testing.T) {
	for _, mode := range []types.ImageMode{types.ImagesNone, types.ImagesInline} {
		t.Run(string(mode), func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "nested", "deeper", "doc.md")

			written, err := Write(&markdown.Result{Markdown: "hello\n\n"}, mode, out)
			require.NoError(t, err)
			assert.Equal(t, []string{out}, written)

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, "hello\n\n", string(data))

			entries, err := os.ReadDir(filepath.Dir(out))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no side files for %s mode", mode)
		})
	}
}

func TestWrite_OverwritesExisting(t *testing.T) {
	out := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(out, []byte("old content that is longer"), 0o644))

	_, err := Write(&markdown.Result{Markdown: "new"}, types.ImagesNone, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWrite_Separate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.md")

	written, err := Write(sampleDoc("report_images"), types.ImagesSeparate, out)
	require.NoError(t, err)
	assert.Equal(t, []string{
		out,
		filepath.Join(dir, "report_images", "img-0.jpeg"),
		filepath.Join(dir, "report_images", "img-1.png"),
	}, written)

	data, err := os.ReadFile(filepath.Join(dir, "report_images", "img-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	md, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(md), "](report_images/img-0.jpeg)")
}

func TestWrite_SeparateCreatesEmptyImageDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "plain.md")

	_, err := Write(&markdown.Result{Markdown: "text\n\n"}, types.ImagesSeparate, out)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "plain_images"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWrite_Zip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.md")

	written, err := Write(sampleDoc("images"), types.ImagesZip, out)
	require.NoError(t, err)
	archive := filepath.Join(dir, "report.zip")
	assert.Equal(t, []string{archive}, written)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "zip mode writes no loose Markdown file")

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	contents := map[string]string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(b)
	}
	assert.Equal(t, []string{"report.md", "images/img-0.jpeg", "images/img-1.png"}, names)
	assert.Equal(t, "jpeg-bytes", contents["images/img-0.jpeg"])
	assert.Contains(t, contents["report.md"], "](images/img-1.png)")
}

func TestWrite_ZipIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "doc.md")
	b := filepath.Join(dir, "b", "doc.md")

	_, err := Write(sampleDoc("images"), types.ImagesZip, a)
	require.NoError(t, err)
	_, err = Write(sampleDoc("images"), types.ImagesZip, b)
	require.NoError(t, err)

	da, err := os.ReadFile(ZipPath(a))
	require.NoError(t, err)
	db, err := os.ReadFile(ZipPath(b))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(da, db), "identical documents produce identical archives")
}

func TestWrite_Errors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file in place of the parent directory.
	out := filepath.Join(blocker, "doc.md")
	for _, mode := range types.ImageModes {
		t.Run(string(mode), func(t *testing.T) {
			_, err := Write(sampleDoc("images"), mode, out)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrOutputWrite)
		})
	}

	_, err := Write(&markdown.Result{}, types.ImageMode("bogus"), filepath.Join(dir, "x.md"))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestWriteMetadata(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.md")
	size := 2048

	p, err := WriteMetadata(Metadata{
		Source:    "in/report.docx",
		Output:    out,
		Model:     "mistral-ocr-2505",
		ImageMode: types.ImagesSeparate,
		Pages:     3,
		Images:    2,
		Usage:     types.Usage{PagesProcessed: 3, DocSizeBytes: &size},
	}, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.meta.yaml"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "in/report.docx", got["source"])
	assert.Equal(t, "separate", got["image_mode"])
	assert.Equal(t, 3, got["pages"])
	usage, ok := got["usage_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2048, usage["doc_size_bytes"])
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.md")

	written, err := Write(sampleDoc("report_images"), types.ImagesSeparate, out)
	require.NoError(t, err)

	Remove(types.ImagesSeparate, out, written)
	for _, p := range append(written, filepath.Join(dir, "report_images")) {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should be removed", p)
	}
}
