package pdfstamp

import (
	"testing"

	"docsign/internal/domain"
	"docsign/internal/testutil"
)

func buildPDF(t *testing.T, pages []domain.PageSize, inherit bool) []byte {
	t.Helper()
	return testutil.PDF(pages, inherit)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	return testutil.PNG(w, h)
}
