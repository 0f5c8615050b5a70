package renderer

import (
	"testing"

	"github.com/pthm-cable/plume/field"
)

func TestColorizeFlipsRows(t *testing.T) {
	dye := field.NewBuffer(2, 2, field.Vec3)
	dye.Set(0, 0, 0, 1) // Bottom-left red
	dye.Set(1, 1, 2, 1) // Top-right blue

	px := Colorize(nil, dye, nil, 1)
	if len(px) != 4 {
		t.Fatalf("expected 4 pixels, got %d", len(px))
	}
	// Top row first: index 1 is top-right, index 2 is bottom-left
	if px[1].B != 255 || px[1].R != 0 {
		t.Errorf("expected top-right blue, got %+v", px[1])
	}
	if px[2].R != 255 || px[2].B != 0 {
		t.Errorf("expected bottom-left red, got %+v", px[2])
	}
	for i, p := range px {
		if p.A != 255 {
			t.Errorf("pixel %d not opaque", i)
		}
	}
}

func TestColorizeExposureClamps(t *testing.T) {
	dye := field.NewBuffer(1, 1, field.Vec3)
	dye.Set(0, 0, 0, 0.25)
	dye.Set(0, 0, 1, -1)

	px := Colorize(nil, dye, nil, 8)
	if px[0].R != 255 || px[0].G != 0 {
		t.Errorf("expected clamped channels, got %+v", px[0])
	}
}

func TestColorizeObstacleOverlay(t *testing.T) {
	dye := field.NewBuffer(4, 4, field.Vec3)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			dye.Set(x, y, 0, 1)
		}
	}
	// Coarser mask with the bottom-left quarter solid
	mask := field.NewBuffer(2, 2, field.Scalar)
	mask.Set(0, 0, 0, 1)

	px := Colorize(nil, dye, mask, 1)
	// Bottom-left dye cell is the last row, first column
	solid := px[3*4+0]
	if solid != obstacleTint {
		t.Errorf("expected obstacle tint, got %+v", solid)
	}
	open := px[0*4+3]
	if open.R != 255 || open.G != 0 {
		t.Errorf("expected untouched dye outside obstacle, got %+v", open)
	}
}

func TestColorizeReusesBuffer(t *testing.T) {
	dye := field.NewBuffer(3, 3, field.Vec3)
	first := Colorize(nil, dye, nil, 1)
	second := Colorize(first, dye, nil, 1)
	if &first[0] != &second[0] {
		t.Error("expected destination buffer to be reused")
	}
}
