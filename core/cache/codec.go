// ABOUTME: Lazy codec lifecycle shared by cache reads and writes
// ABOUTME: The codec is created on first use and released after an idle period

package cache

import (
	"io"
	"sync"
	"time"

	"filter-assets/core/interfaces"
)

// codecHolder refcounts users of a lazily created codec
type codecHolder struct {
	mu      sync.Mutex
	factory interfaces.CodecFactory
	idle    time.Duration
	logger  interfaces.Logger

	codec interfaces.Codec
	refs  int
	timer *time.Timer
}

func newCodecHolder(factory interfaces.CodecFactory, idle time.Duration, logger interfaces.Logger) *codecHolder {
	return &codecHolder{factory: factory, idle: idle, logger: logger}
}

// acquire returns the codec, creating it if needed. ok is false when no
// codec is configured or creation failed; callers then use raw values.
func (h *codecHolder) acquire() (interfaces.Codec, bool) {
	if h == nil || h.factory == nil {
		return nil, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.codec == nil {
		codec, err := h.factory()
		if err != nil || codec == nil {
			fields := map[string]interface{}{}
			if err != nil {
				fields["error"] = err.Error()
			}
			h.logger.Warn("Content codec unavailable, storing raw values", fields)
			return nil, false
		}
		h.codec = codec
	}
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.refs++
	return h.codec, true
}

// release drops one reference and arms the idle timer on the last one
func (h *codecHolder) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.refs > 0 {
		h.refs--
	}
	if h.refs == 0 && h.codec != nil {
		if h.timer != nil {
			h.timer.Stop()
		}
		h.timer = time.AfterFunc(h.idle, h.expire)
	}
}

func (h *codecHolder) expire() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.refs == 0 {
		h.dropLocked()
	}
}

// loaded reports whether a codec instance is currently held
func (h *codecHolder) loaded() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.codec != nil
}

// close releases the codec regardless of idle time
func (h *codecHolder) close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked()
}

func (h *codecHolder) dropLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if h.codec == nil {
		return
	}
	if closer, ok := h.codec.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			h.logger.Warn("Failed to close content codec", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	h.codec = nil
	h.logger.Debug("Content codec released", nil)
}
