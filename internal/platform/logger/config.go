package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds configuration for the logger.
type LoggerConfig struct {
	Level      string
	Format     string
	OutputFile string
}

// DefaultConfig returns info level JSON logs on stderr.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      "info",
		Format:     "json",
		OutputFile: "stderr",
	}
}

func (c *LoggerConfig) normalize() {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.OutputFile == "" {
		c.OutputFile = "stderr"
	}
}

// ToZapLevel parses Level, falling back to info. "warning" is accepted for
// warn.
func (c *LoggerConfig) ToZapLevel() zapcore.Level {
	if c.Level == "warning" {
		return zapcore.WarnLevel
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
