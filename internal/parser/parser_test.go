package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"chat-pdf/internal/models"
)

// buildPDF writes a minimal single-font PDF with one page per entry in pages.
func buildPDF(pages ...string) []byte {
	var objs []string
	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i))
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestExtractText_SinglePage(t *testing.T) {
	got, err := ExtractText(buildPDF("Hello from the PDF"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(got, "Hello from the PDF") {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_PagesInOrder(t *testing.T) {
	got, err := ExtractText(buildPDF("Alpha", "", "Omega"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	a, o := strings.Index(got, "Alpha"), strings.Index(got, "Omega")
	if a < 0 || o < 0 || a > o {
		t.Errorf("pages out of order or missing: %q", got)
	}
}

func TestExtractText_Malformed(t *testing.T) {
	for _, input := range [][]byte{nil, []byte("not a pdf"), []byte("%PDF-1.4\ngarbage")} {
		_, err := ExtractText(input)
		if !errors.Is(err, models.ErrExtraction) {
			t.Errorf("ExtractText(%q): expected ErrExtraction, got %v", input, err)
		}
	}
}
