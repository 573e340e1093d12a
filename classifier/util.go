package classifier

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/samber/lo"
)

type PreprocessOptions struct {
	Size   int
	Layout Layout
	Filter imaging.ResampleFilter
	Pad    bool
}

// Filter maps a config name to a resample filter. The Keras image loader
// resizes with nearest neighbour, so that is the fallback.
func Filter(name string) imaging.ResampleFilter {
	switch name {
	case "linear":
		return imaging.Linear
	case "lanczos":
		return imaging.Lanczos
	default:
		return imaging.NearestNeighbor
	}
}

// prepare image for model input: RGB scaled to [0,1], batch of one
func Preprocess(img image.Image, opts PreprocessOptions) ([]float32, error) {
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if opts.Pad {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		maxDim := max(h, w)

		// white padding
		canvas := imaging.New(maxDim, maxDim, color.White)
		img = imaging.Paste(canvas, img, image.Pt((maxDim-w)/2, (maxDim-h)/2))
	}
	size := opts.Size
	resized := imaging.Resize(img, size, size, opts.Filter)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := range size {
		for x := range size {
			i := y*resized.Stride + x*4
			r := float32(resized.Pix[i]) / 255.0
			g := float32(resized.Pix[i+1]) / 255.0
			b := float32(resized.Pix[i+2]) / 255.0

			p := y*size + x
			if opts.Layout == NCHW {
				out[p] = r
				out[plane+p] = g
				out[2*plane+p] = b
			} else {
				out[3*p] = r
				out[3*p+1] = g
				out[3*p+2] = b
			}
		}
	}
	return out, nil
}

func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	top := lo.Max(logits)
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - top))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Tip returns the advisory text for label, or "" when the label is unknown.
func Tip(label string) string {
	return tips[label]
}

func percent(p float32) float64 {
	return math.Round(float64(p)*100*100) / 100
}
