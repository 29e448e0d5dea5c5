package pdfstamp

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"docsign/internal/domain"
)

var letter = domain.PageSize{Width: 612, Height: 792}

func TestPlacementRectFlipsVerticalAxis(t *testing.T) {
	cases := []struct {
		name      string
		placement domain.Placement
		page      domain.PageSize
		want      [4]float64
	}{
		{
			name:      "top left on letter",
			placement: domain.Placement{Page: 1, X: 0, Y: 0},
			page:      letter,
			want:      [4]float64{0, 732, 150, 792},
		},
		{
			name:      "top left on a4",
			placement: domain.Placement{Page: 1, X: 0, Y: 0, Width: 100, Height: 40},
			page:      domain.PageSize{Width: 595, Height: 842},
			want:      [4]float64{0, 802, 100, 842},
		},
		{
			name:      "center",
			placement: domain.Placement{Page: 1, X: 0.5, Y: 0.5, Width: 100, Height: 50},
			page:      letter,
			want:      [4]float64{306, 346, 406, 396},
		},
		{
			name:      "offset media box",
			placement: domain.Placement{Page: 1, X: 0, Y: 0},
			page:      domain.PageSize{X: 50, Y: 100, Width: 612, Height: 792},
			want:      [4]float64{50, 742, 200, 892},
		},
		{
			name:      "offset media box center",
			placement: domain.Placement{Page: 1, X: 0.5, Y: 0.5, Width: 100, Height: 50},
			page:      domain.PageSize{X: -20, Y: 10, Width: 612, Height: 792},
			want:      [4]float64{286, 356, 386, 406},
		},
		{
			name:      "rotated 90",
			placement: domain.Placement{Page: 1, X: 0, Y: 0},
			page:      domain.PageSize{Width: 612, Height: 792, Rotate: 90},
			want:      [4]float64{0, 0, 60, 150},
		},
		{
			name:      "rotated 90 displayed right edge",
			placement: domain.Placement{Page: 1, X: 1, Y: 0, Width: 0.0001, Height: 60},
			page:      domain.PageSize{Width: 612, Height: 792, Rotate: 90},
			want:      [4]float64{0, 792, 60, 792.0001},
		},
		{
			name:      "rotated 180",
			placement: domain.Placement{Page: 1, X: 0, Y: 0},
			page:      domain.PageSize{Width: 612, Height: 792, Rotate: 180},
			want:      [4]float64{462, 0, 612, 60},
		},
		{
			name:      "rotated 270 with offset",
			placement: domain.Placement{Page: 1, X: 0, Y: 0},
			page:      domain.PageSize{X: 10, Y: 20, Width: 612, Height: 792, Rotate: 270},
			want:      [4]float64{562, 662, 622, 812},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PlacementRect(tc.placement, tc.page)
			for i := range got {
				if math.Abs(got[i]-tc.want[i]) > 1e-9 {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestComposeAddsOneSignaturePerStamp(t *testing.T) {
	signer, err := SelfSigned("Docsign Test", time.Now())
	if err != nil {
		t.Fatalf("self signed: %v", err)
	}
	comp := NewCompositor(signer)
	original := buildPDF(t, []domain.PageSize{letter, letter}, false)
	img := testPNG(t, 300, 120)

	out, err := comp.Compose(context.Background(), original, []domain.Stamp{
		{Placement: domain.Placement{Page: 1, X: 0.1, Y: 0.1}, Image: img, Signer: "Alice", Reason: "approve"},
		{Placement: domain.Placement{Page: 2, X: 0.5, Y: 0.8}, Image: img, Signer: "Bob"},
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(out) <= len(original) {
		t.Fatalf("expected incremental updates to grow the file")
	}
	info, err := Inspect(out)
	if err != nil {
		t.Fatalf("inspect composed: %v", err)
	}
	if info.PageCount != 2 {
		t.Fatalf("expected page count to be preserved, got %d", info.PageCount)
	}
	if info.SignatureCount != 2 {
		t.Fatalf("expected 2 embedded signatures, got %d", info.SignatureCount)
	}
}

func TestComposeRejectsPageOutOfRange(t *testing.T) {
	signer, err := SelfSigned("", time.Now())
	if err != nil {
		t.Fatalf("self signed: %v", err)
	}
	original := buildPDF(t, []domain.PageSize{letter}, false)
	_, err = NewCompositor(signer).Compose(context.Background(), original, []domain.Stamp{
		{Placement: domain.Placement{Page: 3, X: 0.1, Y: 0.1}, Image: testPNG(t, 10, 10)},
	})
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Fatalf("expected 400 api error, got %v", err)
	}
}

func TestComposeWithoutStampsReturnsInput(t *testing.T) {
	signer, err := SelfSigned("", time.Now())
	if err != nil {
		t.Fatalf("self signed: %v", err)
	}
	original := buildPDF(t, []domain.PageSize{letter}, false)
	out, err := NewCompositor(signer).Compose(context.Background(), original, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if string(out) != string(original) {
		t.Fatal("expected input to be returned unchanged")
	}
}

func TestComposeRequiresSigner(t *testing.T) {
	if _, err := (&Compositor{}).Compose(context.Background(), []byte("%PDF-1.7"), nil); err == nil {
		t.Fatal("expected error without signer")
	}
}

func TestComposeHonorsCancellation(t *testing.T) {
	signer, err := SelfSigned("", time.Now())
	if err != nil {
		t.Fatalf("self signed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	original := buildPDF(t, []domain.PageSize{letter}, false)
	_, err = NewCompositor(signer).Compose(ctx, original, []domain.Stamp{
		{Placement: domain.Placement{Page: 1}, Image: testPNG(t, 10, 10)},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
