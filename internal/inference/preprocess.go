package inference

import (
	"errors"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Tensor is a dense float32 NHWC batch.
type Tensor struct {
	Shape [4]int64
	Data  []float32
}

// Preprocess turns a decoded image into the (1, size, size, 3) tensor the
// backbone was trained on:
//
//  1. Lanczos resize to exactly size x size (aspect ratio is not kept)
//  2. RGB: alpha dropped after un-premultiplying, gray replicated
//  3. InceptionResNetV2 scaling, x/127.5 - 1, into [-1, 1]
func Preprocess(img image.Image, size int) (*Tensor, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if size <= 0 {
		return nil, errors.New("invalid target size")
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("image has no pixels")
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	bounds := resized.Bounds()

	t := &Tensor{
		Shape: [4]int64{1, int64(size), int64(size), 3},
		Data:  make([]float32, size*size*3),
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := rgb(resized.At(x, y))
			t.Data[i] = inceptionScale(r)
			t.Data[i+1] = inceptionScale(g)
			t.Data[i+2] = inceptionScale(b)
			i += 3
		}
	}
	return t, nil
}

// rgb returns 8-bit straight (non-premultiplied) RGB, discarding alpha.
func rgb(c color.Color) (uint8, uint8, uint8) {
	switch v := c.(type) {
	case color.Gray:
		return v.Y, v.Y, v.Y
	case color.Gray16:
		y := uint8(v.Y >> 8)
		return y, y, y
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B
}

func inceptionScale(v uint8) float32 {
	return float32(v)/127.5 - 1
}
