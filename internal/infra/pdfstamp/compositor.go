package pdfstamp

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"docsign/internal/domain"

	"github.com/digitorus/pdfsign/sign"
)

// Compositor burns signature images into a PDF. Each stamp becomes a
// visible approval signature written as its own incremental update.
type Compositor struct {
	Signer   *Signer
	Location string
	Now      func() time.Time
}

func NewCompositor(signer *Signer) *Compositor {
	return &Compositor{Signer: signer, Now: time.Now}
}

func (c *Compositor) Compose(ctx context.Context, content []byte, stamps []domain.Stamp) ([]byte, error) {
	if c == nil || c.Signer == nil || c.Signer.Key == nil || c.Signer.Certificate == nil {
		return nil, errors.New("pdf signer required")
	}
	if len(stamps) == 0 {
		return content, nil
	}
	current := content
	for i, stamp := range stamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := c.apply(current, stamp)
		if err != nil {
			var apiErr *domain.APIError
			if errors.As(err, &apiErr) {
				return nil, err
			}
			return nil, fmt.Errorf("apply stamp %d: %w", i+1, err)
		}
		current = next
	}
	return current, nil
}

func (c *Compositor) apply(content []byte, stamp domain.Stamp) (out []byte, err error) {
	rdr, err := openReader(content)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("sign pdf: %v", r)
		}
	}()

	placement := stamp.Placement.WithDefaults()
	if err := placement.Validate(); err != nil {
		return nil, err
	}
	pages := rdr.NumPage()
	if placement.Page > pages {
		return nil, domain.Invalid("Placement page out of range",
			fmt.Sprintf("page %d requested, document has %d", placement.Page, pages))
	}
	size := pageSize(rdr.Page(placement.Page).V)
	rect := PlacementRect(placement, size)

	img, err := toJPEG(stamp.Image)
	if err != nil {
		return nil, domain.Invalid("Signature image is not a valid PNG or JPEG", err.Error())
	}

	name := stamp.Signer
	if name == "" {
		name = c.Signer.Name
	}
	var buf bytes.Buffer
	err = sign.Sign(bytes.NewReader(content), &buf, rdr, int64(len(content)), sign.SignData{
		Signature: sign.SignDataSignature{
			CertType: sign.ApprovalSignature,
			Info: sign.SignDataSignatureInfo{
				Name:     name,
				Location: c.Location,
				Reason:   stamp.Reason,
				Date:     c.now(),
			},
		},
		Signer:          c.Signer.Key,
		DigestAlgorithm: crypto.SHA256,
		Certificate:     c.Signer.Certificate,
		Appearance: sign.Appearance{
			Visible:     true,
			Page:        uint32(placement.Page),
			LowerLeftX:  rect[0],
			LowerLeftY:  rect[1],
			UpperRightX: rect[2],
			UpperRightY: rect[3],
			Image:       img,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sign pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// PlacementRect maps a placement measured from the top-left corner of the
// page as displayed onto PDF user space. The MediaBox origin and the page
// rotation are applied; sizes are in points either way.
func PlacementRect(p domain.Placement, page domain.PageSize) [4]float64 {
	p = p.WithDefaults()
	urx, ury := page.X+page.Width, page.Y+page.Height
	// Under a quarter turn the displayed width is the box height.
	switch page.Rotate {
	case 90:
		dx, dy := p.X*page.Height, p.Y*page.Width
		return [4]float64{page.X + dy, page.Y + dx, page.X + dy + p.Height, page.Y + dx + p.Width}
	case 180:
		dx, dy := p.X*page.Width, p.Y*page.Height
		return [4]float64{urx - dx - p.Width, page.Y + dy, urx - dx, page.Y + dy + p.Height}
	case 270:
		dx, dy := p.X*page.Height, p.Y*page.Width
		return [4]float64{urx - dy - p.Height, ury - dx - p.Width, urx - dy, ury - dx}
	default:
		dx, dy := p.X*page.Width, p.Y*page.Height
		return [4]float64{page.X + dx, ury - dy - p.Height, page.X + dx + p.Width, ury - dy}
	}
}

func (c *Compositor) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}
