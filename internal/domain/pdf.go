package domain

import "context"

// PageSize is a page's MediaBox. X and Y locate its lower-left corner and
// Rotate is the clockwise display rotation: 0, 90, 180 or 270.
type PageSize struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Rotate int
}

type PDFInfo struct {
	PageCount      int
	Pages          []PageSize
	SignatureCount int
}

// Stamp is one signature image to burn into a document.
type Stamp struct {
	Placement Placement
	Image     []byte
	Signer    string
	Reason    string
}

type PDFInspector interface {
	Inspect(content []byte) (PDFInfo, error)
}

type PDFCompositor interface {
	Compose(ctx context.Context, content []byte, stamps []Stamp) ([]byte, error)
}
