package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		wantLevel zapcore.Level
	}{
		{name: "default", cfg: DefaultConfig(), wantLevel: zapcore.InfoLevel},
		{name: "console debug", cfg: Config{Level: "debug", Format: "console"}, wantLevel: zapcore.DebugLevel},
		{name: "json warn", cfg: Config{Level: "warn", Format: "json"}, wantLevel: zapcore.WarnLevel},
		{name: "unknown level", cfg: Config{Level: "loud", Format: "json"}, wantErr: true},
		{name: "unknown format", cfg: Config{Level: "info", Format: "xml"}, wantErr: true},
		{name: "empty", cfg: Config{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer func() { _ = logger.Sync() }()

			if !logger.Core().Enabled(tt.wantLevel) {
				t.Errorf("expected %s to be enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
				t.Errorf("expected levels below %s to be disabled", tt.wantLevel)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a no-op logger")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Fatal("expected the given logger to be returned")
	}
}
