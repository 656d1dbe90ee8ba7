package video

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// FrameFile is one numbered image of a frame directory.
type FrameFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
}

// ListFrames lists the frame-<N>.<ext> images of a directory, ordered by N.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []FrameFile: The frames, in frame-number order.
//   - error: An error if the directory cannot be read or an image is not numbered.
func ListFrames(dir string) ([]FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read frame directory %s", dir)
	}

	var frames []FrameFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)
		switch strings.ToLower(ext) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSuffix(name, ext), "frame-"))
			if err != nil {
				return nil, errors.Errorf("image %s is not named frame-<number>%s", name, ext)
			}
			frames = append(frames, FrameFile{Path: filepath.Join(dir, name), Frame: n})
		}
	}

	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})
	return frames, nil
}

// Directory replays a directory of numbered images as a video stream.
type Directory struct {
	frames []FrameFile
	next   int
	logger *zap.Logger
}

// NewDirectory creates a source over the frames of dir.
func NewDirectory(dir string, logger *zap.Logger) (*Directory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	frames, err := ListFrames(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("frame directory opened", zap.String("dir", dir), zap.Int("frames", len(frames)))
	return &Directory{frames: frames, logger: logger}, nil
}

// Len returns the number of frames in the directory.
func (d *Directory) Len() int {
	return len(d.frames)
}

// Read decodes the next image into dst.
func (d *Directory) Read(ctx context.Context, dst *gocv.Mat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.next >= len(d.frames) {
		return ErrEndOfStream
	}
	f := d.frames[d.next]
	d.next++

	img := gocv.IMRead(f.Path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return errors.Errorf("cannot decode frame %d from %s", f.Frame, f.Path)
	}
	img.CopyTo(dst)
	return nil
}

// Close is a no-op; images are read one at a time.
func (d *Directory) Close() error {
	return nil
}
