package dispatch

import "errors"

// ErrBufferTooSmall is returned when a caller-supplied byte buffer is
// shorter than the shape its header (or an explicit depth/bufferSize)
// requires.
var ErrBufferTooSmall = errors.New("gummyroll/dispatch: buffer too small for this shape")
