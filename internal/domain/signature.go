package domain

import (
	"math"
	"strings"
	"time"
)

type SignatureStatus string

const (
	SignatureStatusPending  SignatureStatus = "pending"
	SignatureStatusSigned   SignatureStatus = "signed"
	SignatureStatusRejected SignatureStatus = "rejected"
)

// ParseSignatureStatus treats an empty value as pending.
func ParseSignatureStatus(raw string) (SignatureStatus, bool) {
	switch SignatureStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SignatureStatusPending:
		return SignatureStatusPending, true
	case SignatureStatusSigned:
		return SignatureStatusSigned, true
	case SignatureStatusRejected:
		return SignatureStatusRejected, true
	default:
		return "", false
	}
}

const (
	DefaultPlacementWidth  = 150.0
	DefaultPlacementHeight = 60.0
)

// Placement positions a signature on a page. X and Y are fractions of the
// page measured from the top-left corner; Width and Height are PDF points.
type Placement struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (p Placement) Validate() error {
	var details []string
	if p.Page < 1 {
		details = append(details, "page must be >= 1")
	}
	if !unitInterval(p.X) {
		details = append(details, "x must be between 0 and 1")
	}
	if !unitInterval(p.Y) {
		details = append(details, "y must be between 0 and 1")
	}
	if !finiteSize(p.Width) || !finiteSize(p.Height) {
		details = append(details, "width and height must be positive")
	}
	if len(details) > 0 {
		return Invalid("invalid placement", details...)
	}
	return nil
}

// unitInterval is false for NaN.
func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

func finiteSize(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// WithDefaults fills a zero size with the standard signature box.
func (p Placement) WithDefaults() Placement {
	if p.Width == 0 {
		p.Width = DefaultPlacementWidth
	}
	if p.Height == 0 {
		p.Height = DefaultPlacementHeight
	}
	return p
}

type Signature struct {
	ID              string
	DocumentID      string
	UserID          string
	Placement       Placement
	Status          SignatureStatus
	Reason          string
	ImageURL        string
	ImageStorageKey string
	// RenderedAt is set once the placement has been burned into the stored
	// PDF, either by a server render or by a signed replacement upload.
	RenderedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SignatureView struct {
	Signature
	Signer UserRef
}

type FinalizeResult struct {
	MatchedCount  int64
	ModifiedCount int64
}
