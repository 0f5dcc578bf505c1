package inference

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(img interface {
	image.Image
	Set(x, y int, c color.Color)
}, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func TestPreprocessShapeIsFixed(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 50, 50))
	rgba := image.NewRGBA(image.Rect(0, 0, 4000, 3000))
	wide := image.NewNRGBA(image.Rect(0, 0, 640, 20))

	for name, img := range map[string]image.Image{"gray 50x50": gray, "rgba 4000x3000": rgba, "nrgba 640x20": wide} {
		tensor, err := Preprocess(img, 300)
		require.NoError(t, err, name)
		assert.Equal(t, [4]int64{1, 300, 300, 3}, tensor.Shape, name)
		assert.Len(t, tensor.Data, 300*300*3, name)
	}
}

func TestPreprocessScalesToUnitRange(t *testing.T) {
	t.Parallel()

	white := image.NewGray(image.Rect(0, 0, 40, 40))
	uniform(white, color.Gray{Y: 255})
	black := image.NewGray(image.Rect(0, 0, 40, 40))

	tw, err := Preprocess(white, 300)
	require.NoError(t, err)
	tb, err := Preprocess(black, 300)
	require.NoError(t, err)

	for i := range tw.Data {
		require.InDelta(t, 1.0, tw.Data[i], 1e-6)
		require.InDelta(t, -1.0, tb.Data[i], 1e-6)
	}
}

func TestPreprocessChannelOrder(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	uniform(img, color.RGBA{R: 255, A: 255})

	tensor, err := Preprocess(img, 300)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, tensor.Data[0], 1e-6)
	assert.InDelta(t, -1.0, tensor.Data[1], 1e-6)
	assert.InDelta(t, -1.0, tensor.Data[2], 1e-6)
}

func TestPreprocessReplicatesGray(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 20, 30))
	uniform(img, color.Gray{Y: 100})

	tensor, err := Preprocess(img, 300)
	require.NoError(t, err)

	want := float32(100)/127.5 - 1
	for i := 0; i < len(tensor.Data); i += 3 {
		require.Equal(t, tensor.Data[i], tensor.Data[i+1])
		require.Equal(t, tensor.Data[i], tensor.Data[i+2])
		require.InDelta(t, want, tensor.Data[i], 1e-6)
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	uniform(img, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	tensor, err := Preprocess(img, 300)
	require.NoError(t, err)

	// the straight color survives, not the color blended towards black
	tolerance := 2 / 127.5
	mid := (150*300 + 150) * 3
	assert.InDelta(t, float32(200)/127.5-1, tensor.Data[mid], tolerance)
	assert.InDelta(t, float32(100)/127.5-1, tensor.Data[mid+1], tolerance)
	assert.InDelta(t, float32(50)/127.5-1, tensor.Data[mid+2], tolerance)
}

func TestPreprocessRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := Preprocess(nil, 300)
	assert.Error(t, err)

	_, err = Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0)), 300)
	assert.Error(t, err)

	_, err = Preprocess(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0)
	assert.Error(t, err)
}

func TestPreprocessIsDeterministic(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: uint8(x ^ y), A: 255})
		}
	}

	a, err := Preprocess(img, 300)
	require.NoError(t, err)
	b, err := Preprocess(img, 300)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)

	for _, v := range a.Data {
		require.GreaterOrEqual(t, v, float32(-1))
		require.LessOrEqual(t, v, float32(1))
	}
}
