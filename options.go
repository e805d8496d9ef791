package asefile

import "go.uber.org/zap"

// diagLogger is the structured logger threaded through parsing and
// rendering. It defaults to a no-op logger so callers never need to supply
// one.
type diagLogger = *zap.Logger

// parseConfig collects the options accumulated from a Decode call's
// ParseOption arguments.
type parseConfig struct {
	logger        *zap.Logger
	maxFrameBytes int
}

func defaultParseConfig() parseConfig {
	return parseConfig{
		logger:        zap.NewNop(),
		maxFrameBytes: 256 << 20,
	}
}

// ParseOption configures a single Decode call.
type ParseOption func(*parseConfig)

// WithLogger attaches a structured logger that receives a warning when
// rendering meets an unknown blend mode and falls back to Normal; nothing
// else is logged. A nil logger is treated as WithLogger(zap.NewNop()).
func WithLogger(l *zap.Logger) ParseOption {
	return func(c *parseConfig) {
		if l == nil {
			l = zap.NewNop()
		}
		c.logger = l
	}
}

// WithMaxFrameBytes caps the declared file size Decode will allocate for
// before reading the remainder of the stream, guarding against a corrupt
// or adversarial header claiming an implausible size. The default is
// 256 MiB.
func WithMaxFrameBytes(n int) ParseOption {
	return func(c *parseConfig) {
		if n > 0 {
			c.maxFrameBytes = n
		}
	}
}
