package observability

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggerConfig
		env     string
		wantErr bool
		enabled zapcore.Level
	}{
		{name: "json info", cfg: config.LoggerConfig{Level: "info", Format: "json"}, env: "production", enabled: zapcore.InfoLevel},
		{name: "console debug", cfg: config.LoggerConfig{Level: "DEBUG", Format: "console"}, env: "development", enabled: zapcore.DebugLevel},
		{name: "bad level", cfg: config.LoggerConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: config.LoggerConfig{Level: "info", Format: "xml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg, tt.env)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewLogger succeeded")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if !logger.Core().Enabled(tt.enabled) {
				t.Fatalf("level %s disabled", tt.enabled)
			}
		})
	}
}
