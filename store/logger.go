package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/vbuf"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
)

// Logger returns the store package logger.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// SetLogger sets the store package logger.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func zapHandle(h vbuf.Handle) zap.Field { return zap.Uint32("handle", uint32(h)) }

func zapSize(n int) zap.Field { return zap.Int("size", n) }

func zapOffset(off uint32) zap.Field { return zap.Uint32("offset", off) }

func zap32(key string, v uint32) zap.Field { return zap.Uint32(key, v) }
