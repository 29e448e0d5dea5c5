package client

import (
	"context"
	"errors"
	"fmt"

	"docsign/internal/domain"

	"golang.org/x/sync/errgroup"
)

// SignAndReplace saves every placement as signed, then renders them into
// the downloaded PDF and uploads the result as the document's replacement.
// Nothing is rendered or uploaded unless every placement was saved.
func (c *Client) SignAndReplace(ctx context.Context, documentID string, placements []Placement) (Document, error) {
	if c.Compositor == nil {
		return Document{}, errors.New("compositor required")
	}
	if len(placements) == 0 {
		return Document{}, errors.New("at least one placement is required")
	}
	doc, err := c.GetDocument(ctx, documentID)
	if err != nil {
		return Document{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range placements {
		p := placements[i]
		p.Status = string(domain.SignatureStatusSigned)
		g.Go(func() error {
			if _, err := c.PlaceSignature(gctx, documentID, p); err != nil {
				return fmt.Errorf("save placement on page %d: %w", p.Page, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Document{}, err
	}

	original, err := c.DownloadDocument(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	stamps := make([]domain.Stamp, 0, len(placements))
	for _, p := range placements {
		stamps = append(stamps, domain.Stamp{
			Placement: domain.Placement{
				Page:   p.Page,
				X:      p.X,
				Y:      p.Y,
				Width:  p.Width,
				Height: p.Height,
			}.WithDefaults(),
			Image:  p.Image,
			Reason: p.Reason,
		})
	}
	signed, err := c.Compositor.Compose(ctx, original, stamps)
	if err != nil {
		return Document{}, fmt.Errorf("render signed document: %w", err)
	}
	return c.ReplaceSigned(ctx, documentID, doc.Filename, signed)
}
