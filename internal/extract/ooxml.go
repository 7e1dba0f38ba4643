package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Office Open XML packages are zips. Word text lives in <w:t> nodes of the
// main document part; slide text lives in <a:t> nodes of each slide part.
// Regex keeps the extraction tolerant of run and paragraph attributes that a
// full XML walk would have to model.
var (
	wordTextNode  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	slideTextNode = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

const wordMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var wordMainOverride = []*regexp.Regexp{
	regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(wordMainContentType) + `"`),
	regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(wordMainContentType) + `"[^>]+PartName="([^"]+)"`),
}

// docxText extracts the visible text of a .docx file.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("docx: not a zip: %w", err)
	}
	part := wordMainPart(zr)
	doc, err := zipFileContent(zr, part)
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	return joinMatches(wordTextNode.FindAllStringSubmatch(doc, -1)), nil
}

// wordMainPart resolves the main document part from [Content_Types].xml.
// Word always writes word/document.xml but OOXML allows any part name.
func wordMainPart(zr *zip.Reader) string {
	types, err := zipFileContent(zr, "[Content_Types].xml")
	if err != nil {
		return "word/document.xml"
	}
	for _, re := range wordMainOverride {
		if m := re.FindStringSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return "word/document.xml"
}

// pptxText extracts the visible text of every slide in a .pptx file.
func pptxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("pptx: not a zip: %w", err)
	}
	var parts [][]string
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		slide, err := zipFileContent(zr, f.Name)
		if err != nil {
			return "", fmt.Errorf("pptx: %w", err)
		}
		parts = append(parts, slideTextNode.FindAllStringSubmatch(slide, -1)...)
	}
	return joinMatches(parts), nil
}

// zipFileContent reads one named file out of a zip archive.
func zipFileContent(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%s not found", name)
}

// joinMatches joins the first capture group of each match with spaces.
func joinMatches(matches [][]string) string {
	var b strings.Builder
	for _, m := range matches {
		text := strings.TrimSpace(m[1])
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}
