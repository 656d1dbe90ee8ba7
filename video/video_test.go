package video

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/overlay"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	require.NoError(t, png.Encode(f, img))
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func TestListFrames_Order(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "frame-10.png"), 4, 4)
	writePNG(t, filepath.Join(dir, "frame-2.png"), 4, 4)
	writeJPEG(t, filepath.Join(dir, "frame-1.jpg"), 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-0.png"), 0o755))

	frames, err := ListFrames(dir)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, []int{1, 2, 10}, []int{frames[0].Frame, frames[1].Frame, frames[2].Frame})
	assert.Equal(t, filepath.Join(dir, "frame-1.jpg"), frames[0].Path)
}

func TestListFrames_Errors(t *testing.T) {
	_, err := ListFrames(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "cover.png"), 4, 4)
	_, err = ListFrames(dir)
	assert.Error(t, err)
}

func TestDirectory_Read(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "frame-2.png"), 8, 6)
	writePNG(t, filepath.Join(dir, "frame-1.png"), 4, 3)

	src, err := NewDirectory(dir, nil)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 2, src.Len())

	frame := gocv.NewMat()
	defer frame.Close()

	ctx := context.Background()
	require.NoError(t, src.Read(ctx, &frame))
	assert.Equal(t, 4, frame.Cols())
	assert.Equal(t, 3, frame.Rows())

	require.NoError(t, src.Read(ctx, &frame))
	assert.Equal(t, 8, frame.Cols())
	assert.Equal(t, 6, frame.Rows())

	assert.ErrorIs(t, src.Read(ctx, &frame), ErrEndOfStream)
	assert.ErrorIs(t, src.Read(ctx, &frame), ErrEndOfStream)
}

func TestDirectory_ReadUndecodable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-1.png"), []byte("not a png"), 0o600))

	src, err := NewDirectory(dir, nil)
	require.NoError(t, err)

	frame := gocv.NewMat()
	defer frame.Close()
	err = src.Read(context.Background(), &frame)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEndOfStream)
}

func TestDirectory_ReadCancelled(t *testing.T) {
	src := &Directory{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame := gocv.NewMat()
	defer frame.Close()
	assert.ErrorIs(t, src.Read(ctx, &frame), context.Canceled)
}

func TestOpenCapture_Missing(t *testing.T) {
	_, err := OpenCapture(filepath.Join(t.TempDir(), "missing.mp4"), nil)
	assert.Error(t, err)
}

func TestIsStopKey(t *testing.T) {
	tests := []struct {
		key      int
		expected bool
	}{
		{key: 'q', expected: true},
		{key: 'Q', expected: true},
		{key: 27, expected: true},
		{key: 0x100000 | 'q', expected: true},
		{key: -1, expected: false},
		{key: 'a', expected: false},
		{key: ' ', expected: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsStopKey(tt.key), "key %d", tt.key)
	}
}

func TestSnapshots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewSnapshots(dir, 2, overlay.DefaultStyle(), nil)
	require.NoError(t, err)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	ins := []overlay.RenderInstruction{{
		Region: images.Region{X: 4, Y: 20, W: 20, H: 20},
		Label:  "person 90.0%",
		Color:  overlay.ColorFor(0),
	}}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Present(&frame, ins))
		assert.False(t, s.StopRequested())
	}
	require.NoError(t, s.Close())
	assert.Equal(t, 3, s.Saved())

	for _, n := range []int{0, 2, 4} {
		f, err := os.Open(SnapshotPath(dir, n))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())

		// The outline is red on a black frame.
		r, _, _, _ := img.At(14, 20).RGBA()
		assert.Greater(t, r>>8, uint32(200))
		assert.Equal(t, color.Gray{}, color.GrayModel.Convert(img.At(14, 30)))
	}
	_, err = os.Stat(SnapshotPath(dir, 1))
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshotPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "frame-000042.png"), SnapshotPath("out", 42))
}
