package pdfstamp

import (
	"bytes"
	"errors"
	"fmt"

	"docsign/internal/domain"

	"github.com/digitorus/pdf"
	"github.com/digitorus/pkcs7"
)

// US Letter, used when no MediaBox is found on the page or its parents.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

type Inspector struct{}

func NewInspector() Inspector {
	return Inspector{}
}

func (Inspector) Inspect(content []byte) (domain.PDFInfo, error) {
	return Inspect(content)
}

// Inspect reports page geometry and the number of embedded PKCS#7
// signatures.
func Inspect(content []byte) (info domain.PDFInfo, err error) {
	rdr, err := openReader(content)
	if err != nil {
		return domain.PDFInfo{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			info = domain.PDFInfo{}
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	count := rdr.NumPage()
	if count < 1 {
		return domain.PDFInfo{}, errors.New("pdf has no pages")
	}
	info.PageCount = count
	info.Pages = make([]domain.PageSize, 0, count)
	for i := 1; i <= count; i++ {
		info.Pages = append(info.Pages, pageSize(rdr.Page(i).V))
	}
	info.SignatureCount = countSignatures(rdr)
	return info, nil
}

func openReader(content []byte) (rdr *pdf.Reader, err error) {
	if len(content) == 0 {
		return nil, errors.New("pdf is empty")
	}
	defer func() {
		if r := recover(); r != nil {
			rdr = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	rdr, err = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return rdr, nil
}

// pageSize reads MediaBox and Rotate from the page or the nearest ancestor
// that has them.
func pageSize(page pdf.Value) domain.PageSize {
	size := domain.PageSize{Width: defaultPageWidth, Height: defaultPageHeight}
	for node, depth := page, 0; !node.IsNull() && depth < 32; node, depth = node.Key("Parent"), depth+1 {
		box := node.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() < 4 {
			continue
		}
		llx, lly := box.Index(0).Float64(), box.Index(1).Float64()
		w := box.Index(2).Float64() - llx
		h := box.Index(3).Float64() - lly
		if w > 0 && h > 0 {
			size = domain.PageSize{X: llx, Y: lly, Width: w, Height: h}
			break
		}
	}
	size.Rotate = pageRotation(page)
	return size
}

func pageRotation(page pdf.Value) int {
	for node, depth := page, 0; !node.IsNull() && depth < 32; node, depth = node.Key("Parent"), depth+1 {
		rotate := node.Key("Rotate")
		if rotate.Kind() != pdf.Integer {
			continue
		}
		deg := int(rotate.Int64()) % 360
		if deg < 0 {
			deg += 360
		}
		return deg / 90 * 90
	}
	return 0
}

func countSignatures(rdr *pdf.Reader) int {
	count := 0
	for _, x := range rdr.Xref() {
		v := rdr.Resolve(x.Ptr(), x.Ptr())
		if v.Key("Filter").Name() != "Adobe.PPKLite" {
			continue
		}
		if _, err := pkcs7.Parse([]byte(v.Key("Contents").RawString())); err != nil {
			continue
		}
		count++
	}
	return count
}
