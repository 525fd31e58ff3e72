package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger(buf *bytes.Buffer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

// Stock ledger failures are logged with product and variant fields; they must
// survive arbitrary Unicode variant keys.
func TestProperty_StockLogEntriesAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("log entries keep variant keys verbatim", prop.ForAll(
		func(message string, variantKey string) bool {
			var buf bytes.Buffer
			logger := bufferLogger(&buf)

			logger.Warn(message, zap.String("variant", variantKey), zap.Int("quantity", 3))
			logger.Sync()

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}
			if entry["level"] != "warn" || entry["message"] != message {
				return false
			}
			return entry["variant"] == variantKey
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ErrorLogsIncludeContext(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("error logs include the error field", prop.ForAll(
		func(message string, errorMsg string) bool {
			var buf bytes.Buffer
			logger := bufferLogger(&buf)

			logger.Error(message, zap.String("error", errorMsg))
			logger.Sync()

			var entry map[string]interface{}
			json.Unmarshal(buf.Bytes(), &entry)

			_, ok := entry["error"]
			return ok
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNew_Levels(t *testing.T) {
	logger, err := New("production", "warn")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}

	dev, err := New("development", "bogus")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Error("development logger should default to debug")
	}
}
