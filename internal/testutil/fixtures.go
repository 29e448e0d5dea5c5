// Package testutil builds small PDF and image fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"docsign/internal/domain"
)

var Letter = domain.PageSize{Width: 612, Height: 792}

// PDF writes a minimal uncompressed PDF. With inherit set the first page
// size is declared on the page tree node instead of on each page.
func PDF(pages []domain.PageSize, inherit bool) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", i+4)
	}
	pagesDict := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", kids, len(pages))
	if inherit && len(pages) > 0 {
		pagesDict += pageBox(pages[0])
	}
	obj(pagesDict + " >>")
	obj("<< /Producer (docsign test) >>")
	for _, p := range pages {
		page := "<< /Type /Page /Parent 2 0 R /Resources << >>"
		if !inherit {
			page += pageBox(p)
		}
		obj(page + " >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func pageBox(p domain.PageSize) string {
	box := fmt.Sprintf(" /MediaBox [%g %g %g %g]", p.X, p.Y, p.X+p.Width, p.Y+p.Height)
	if p.Rotate != 0 {
		box += fmt.Sprintf(" /Rotate %d", p.Rotate)
	}
	return box
}

// LetterPDF is a document of n US Letter pages.
func LetterPDF(n int) []byte {
	pages := make([]domain.PageSize, n)
	for i := range pages {
		pages[i] = Letter
	}
	return PDF(pages, false)
}

// PNG is a transparent image crossed by one black line.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
