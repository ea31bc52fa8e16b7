package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
)

// SyntheticGenerator renders deterministic striped PNGs seeded by the prompt.
// It is wired when no image provider credentials are configured.
type SyntheticGenerator struct {
	// MaxSide caps the rendered dimensions to keep placeholders small.
	MaxSide int
}

func NewSyntheticGenerator() *SyntheticGenerator {
	return &SyntheticGenerator{MaxSide: 512}
}

func (s *SyntheticGenerator) Name() string { return syntheticProviderName }

func (s *SyntheticGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	width, height := ParseSize(req.Size)
	if s.MaxSide > 0 {
		for width > s.MaxSide || height > s.MaxSide {
			width, height = width/2, height/2
		}
	}
	sum := sha256.Sum256([]byte(req.Prompt))
	return Result{Data: renderSyntheticImage(width, height, hex.EncodeToString(sum[:])[:16]), MIME: "image/png"}, nil
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(8, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(8, width/32) {
		for y := 0; y < height; y++ {
			xx := x + y
			if xx >= width {
				break
			}
			img.Set(xx, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: hexByte(segment[0:2]), G: hexByte(segment[2:4]), B: hexByte(segment[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

var _ Generator = (*SyntheticGenerator)(nil)
