package nodes

import (
	"image"
	"log/slog"

	"github.com/ib-77/framerail/internal/logging"
	"github.com/ib-77/framerail/pkg/gpu"
)

// DefaultDeviceCapacity is the memory budget of the host device created by
// NewContext.
const DefaultDeviceCapacity = 1 << 30

// PreviewFunc receives frames in sequence order. It runs on a pipeline
// worker while that worker holds commit rights, so it must return quickly.
// img is owned by the callee.
type PreviewFunc func(seq uint64, img *image.RGBA)

// Context carries the collaborators nodes need at construction.
type Context struct {
	Device  gpu.Device
	Preview PreviewFunc
	Logger  *slog.Logger
}

// NewContext returns a context with an emulated host device and the nodes
// logger.
func NewContext() *Context {
	return &Context{
		Device: gpu.NewHostDevice(DefaultDeviceCapacity),
		Logger: logging.New("nodes"),
	}
}

func (c *Context) logger() *slog.Logger {
	if c.Logger == nil {
		return logging.New("nodes")
	}
	return c.Logger
}
