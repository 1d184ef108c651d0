// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown assembles OCR pages into a single Markdown document and
// rewrites image placeholders according to the selected image mode.
package markdown

import (
	"encoding/base64"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/mistral-ocr/internal/classify"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// ZipImagesDir is the directory inside a zip archive that holds images.
const ZipImagesDir = "images"

// Asset is an image to be written alongside the Markdown.
type Asset struct {
	// ID is the image identifier from the OCR response.
	ID string

	// Name is the slash-separated path relative to the Markdown file, exactly
	// as referenced from the Markdown.
	Name string

	// Data is the decoded image.
	Data []byte
}

// Result is an assembled document.
type Result struct {
	Markdown string
	Assets   []Asset
	Pages    int
	Images   int
}

// ImagesDirName returns the sibling directory used by separate mode for an
// output file stem.
func ImagesDirName(stem string) string {
	return stem + "_images"
}

var parser = goldmark.New().Parser()

// Assemble concatenates the pages of res in index order and rewrites every
// image placeholder for mode. stem is the output file name without extension
// and determines the separate-mode image directory.
//
// When the document has more than one page each page is preceded by a
// "# Page N" heading; every page is followed by a blank line.
//
// Inline references are rewritten whether the destination is bare or in
// angle brackets and whether or not it carries a title. Reference
// definitions are retargeted in the modes that keep images. Any reference
// to an image that is still in place after rewriting is an error, as is a
// response image that is not referenced from its page, a duplicate image id
// or page index, or an undecodable payload. All are types.ErrResponseParse.
func Assemble(res *types.OCRResult, mode types.ImageMode, stem string) (*Result, error) {
	const op = "Assemble"

	pages, err := orderedPages(res.Pages)
	if err != nil {
		return nil, err
	}

	out := &Result{Pages: len(pages)}
	seen := make(map[string]int)
	multiPage := len(pages) > 1

	var b strings.Builder
	for _, page := range pages {
		md := page.Markdown
		refs := destinations(md, false)

		for _, img := range page.Images {
			if prev, dup := seen[img.ID]; dup {
				return nil, types.NewError(types.ErrResponseParse, op,
					fmt.Sprintf("image id %q appears on page %d and page %d", img.ID, prev+1, page.Index+1), nil)
			}
			seen[img.ID] = page.Index
			if err := checkID(img.ID); err != nil {
				return nil, err
			}
			if !refs[img.ID] && !refPattern(img.ID).MatchString(md) {
				return nil, types.NewError(types.ErrResponseParse, op,
					fmt.Sprintf("image %q is not referenced from page %d", img.ID, page.Index+1), nil)
			}

			var asset *Asset
			md, asset, err = rewrite(md, img, mode, stem)
			if err != nil {
				return nil, err
			}
			if asset != nil {
				out.Assets = append(out.Assets, *asset)
			}
			out.Images++
		}

		if len(page.Images) > 0 {
			left := destinations(md, true)
			for _, img := range page.Images {
				if left[img.ID] {
					return nil, types.NewError(types.ErrResponseParse, op,
						fmt.Sprintf("image %q on page %d is referenced in a form that cannot be rewritten", img.ID, page.Index+1), nil)
				}
			}
		}

		if multiPage {
			fmt.Fprintf(&b, "# Page %d\n\n", page.Index+1)
		}
		b.WriteString(strings.TrimRight(md, " \t\r\n"))
		b.WriteString("\n\n")
	}

	out.Markdown = b.String()
	return out, nil
}

// rewrite applies the image-mode rule for one image to md.
func rewrite(md string, img types.Image, mode types.ImageMode, stem string) (string, *Asset, error) {
	switch mode {
	case types.ImagesNone:
		return StripImage(md, img.ID), nil, nil

	case types.ImagesInline:
		uri, err := dataURI(img)
		if err != nil {
			return "", nil, err
		}
		return Retarget(md, img.ID, uri), nil, nil

	case types.ImagesSeparate, types.ImagesZip:
		data, err := DecodeImage(img)
		if err != nil {
			return "", nil, err
		}
		dir := ImagesDirName(stem)
		if mode == types.ImagesZip {
			dir = ZipImagesDir
		}
		name := path.Join(dir, img.ID)
		return Retarget(md, img.ID, name), &Asset{ID: img.ID, Name: name, Data: data}, nil

	default:
		return "", nil, types.NewError(types.ErrConfiguration, "Assemble",
			fmt.Sprintf("invalid image mode %q", mode), nil)
	}
}

// refPattern matches an inline image or link whose destination is id, bare
// or in angle brackets, with an optional title. Groups: 1 is the "!", 2 the
// alt text, 3 the title with its leading space.
func refPattern(id string) *regexp.Regexp {
	q := regexp.QuoteMeta(id)
	return regexp.MustCompile(`(!?)\[((?:[^\[\]\\]|\\.|\[[^\[\]]*\])*)\]\(\s*(?:<` + q + `>|` + q + `)` +
		`((?:\s+(?:"[^"]*"|'[^']*'|\([^()]*\)))?)\s*\)`)
}

// defPattern matches a link reference definition line whose destination is
// id. Groups: 1 is the label part, 2 the optional title.
func defPattern(id string) *regexp.Regexp {
	q := regexp.QuoteMeta(id)
	return regexp.MustCompile(`(?m)^( {0,3}\[[^\]]+\]:[ \t]*)(?:<` + q + `>|` + q + `)` +
		`([ \t]+(?:"[^"]*"|'[^']*'|\([^()]*\)))?[ \t]*$`)
}

func replaceMatches(re *regexp.Regexp, s string, f func(groups []string) string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return f(re.FindStringSubmatch(match))
	})
}

// Retarget points every inline reference and reference definition for id at
// dest, keeping alt text and titles.
func Retarget(md, id, dest string) string {
	d := linkDestination(dest)
	md = replaceMatches(refPattern(id), md, func(g []string) string {
		return g[1] + "[" + g[2] + "](" + d + g[3] + ")"
	})
	return replaceMatches(defPattern(id), md, func(g []string) string {
		return g[1] + d + g[2]
	})
}

// StripImage removes every inline image or link to id. Reference-style
// uses are left in place.
func StripImage(md, id string) string {
	return refPattern(id).ReplaceAllLiteralString(md, "")
}

// linkDestination wraps dest in angle brackets when it would not parse as a
// bare destination.
func linkDestination(dest string) string {
	if !strings.ContainsAny(dest, " \t()<>") {
		return dest
	}
	return "<" + strings.NewReplacer("<", `\<`, ">", `\>`).Replace(dest) + ">"
}

// destinations returns the set of image destinations in md, plus link
// destinations when links is set. Reference-style uses are resolved.
func destinations(md string, links bool) map[string]bool {
	src := []byte(md)
	doc := parser.Parse(text.NewReader(src))
	dests := make(map[string]bool)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Image:
			dests[string(v.Destination)] = true
		case *ast.Link:
			if links {
				dests[string(v.Destination)] = true
			}
		}
		return ast.WalkContinue, nil
	})
	return dests
}

// ImageReferences returns the distinct image destinations of md, sorted.
func ImageReferences(md string) []string {
	set := destinations(md, false)
	refs := make([]string, 0, len(set))
	for d := range set {
		refs = append(refs, d)
	}
	sort.Strings(refs)
	return refs
}

func orderedPages(pages []types.Page) ([]types.Page, error) {
	ordered := make([]types.Page, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Index == ordered[i-1].Index {
			return nil, types.NewError(types.ErrResponseParse, "Assemble",
				fmt.Sprintf("page index %d appears more than once", ordered[i].Index), nil)
		}
	}
	return ordered, nil
}

// checkID rejects image ids that cannot be used as a file name.
func checkID(id string) error {
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return types.NewError(types.ErrResponseParse, "Assemble",
			fmt.Sprintf("image id %q is not a valid file name", id), nil)
	}
	return nil
}

// DecodeImage returns the raw bytes of an image payload. Both bare base64 and
// data URIs are accepted.
func DecodeImage(img types.Image) ([]byte, error) {
	if img.Base64 == "" {
		return nil, types.NewError(types.ErrResponseParse, "DecodeImage",
			fmt.Sprintf("image %q has no image data", img.ID), nil)
	}
	raw := img.Base64
	if strings.HasPrefix(raw, "data:") {
		if _, payload, ok := strings.Cut(raw, ","); ok {
			raw = payload
		}
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
	}
	if err != nil {
		return nil, types.NewError(types.ErrResponseParse, "DecodeImage",
			fmt.Sprintf("failed to decode base64 for image %q", img.ID), err)
	}
	return data, nil
}

// dataURI returns the inline form of an image. Payloads that already are
// data URIs are used unchanged; otherwise the media type is derived from the
// image id's extension, defaulting to image/jpeg.
func dataURI(img types.Image) (string, error) {
	if img.Base64 == "" {
		return "", types.NewError(types.ErrResponseParse, "Inline",
			fmt.Sprintf("image %q has no image data", img.ID), nil)
	}
	if _, err := DecodeImage(img); err != nil {
		return "", err
	}
	if strings.HasPrefix(img.Base64, "data:") {
		return img.Base64, nil
	}
	mime := classify.MIMEType(classify.Extension(img.ID))
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + img.Base64, nil
}
