// Package video - Frame sources and displays for the detection loop.
package video

import "github.com/pkg/errors"

// ErrEndOfStream is returned by a source that has no more frames.
var ErrEndOfStream = errors.New("end of stream")
