package logging_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap/zapcore"

	"github.com/go-ports/wordmask/internal/logging"
)

func TestParseLevel(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"TRACE", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}

	for _, tc := range cases {
		c.Run(tc.in, func(c *qt.C) {
			c.Assert(logging.ParseLevel(tc.in), qt.Equals, tc.want)
		})
	}
}

func TestNew_HappyPath(t *testing.T) {
	c := qt.New(t)

	for _, format := range []string{"", "json", "console"} {
		c.Run("format "+format, func(c *qt.C) {
			logger, err := logging.New("debug", format)
			c.Assert(err, qt.IsNil)
			c.Assert(logger, qt.IsNotNil)
			c.Assert(logger.Core().Enabled(zapcore.DebugLevel), qt.IsTrue)
		})
	}
}

func TestNew_FailurePath(t *testing.T) {
	c := qt.New(t)

	logger, err := logging.New("info", "xml")
	c.Assert(err, qt.IsNotNil)
	c.Assert(logger, qt.IsNil)
}
