package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
)

// OpenDocument files are zips with the document body in content.xml. Text
// sits in text:p, text:span, and text:h nodes.
var (
	odfParagraph = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfSpan      = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfHeading   = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

// odpText extracts the visible text of an .odp presentation.
func odpText(content []byte) (string, error) {
	return odfText(content, odfParagraph, odfSpan, odfHeading)
}

// odsText extracts the cell text of an .ods spreadsheet.
func odsText(content []byte) (string, error) {
	return odfText(content, odfParagraph, odfSpan)
}

func odfText(content []byte, nodes ...*regexp.Regexp) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opendocument: not a zip: %w", err)
	}
	body, err := zipFileContent(zr, "content.xml")
	if err != nil {
		return "", fmt.Errorf("opendocument: %w", err)
	}
	var matches [][]string
	for _, re := range nodes {
		matches = append(matches, re.FindAllStringSubmatch(body, -1)...)
	}
	return joinMatches(matches), nil
}
