package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"chat-pdf/internal/models"
)

// ExtractText returns the text of every page of a PDF, concatenated in page
// order with no separator. Pages without extractable text contribute nothing.
// A document the reader cannot open wraps models.ErrExtraction.
func ExtractText(content []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed PDF: %v", models.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		buf.WriteString(pageText(reader, i))
	}
	return buf.String(), nil
}

// pageText never fails: a page that cannot be decoded counts as empty.
func pageText(reader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Int("page", pageNum).Interface("panic", r).Msg("Skipping undecodable page")
			text = ""
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		log.Debug().Err(err).Int("page", pageNum).Msg("No extractable text on page")
		return ""
	}
	return text
}
