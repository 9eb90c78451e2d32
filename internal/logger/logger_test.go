package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{env: "prod", want: zapcore.InfoLevel},
		{env: "local", want: zapcore.DebugLevel},
		{env: "mock", level: "warn", want: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "local", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if !l.Core().Enabled(tt.want) || (tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1)) {
				t.Errorf("level: want %s", tt.want)
			}
		})
	}
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()
	fallback := zap.NewExample()

	if FromContext(ctx) == nil {
		t.Fatal("FromContext must never return nil")
	}
	if FromContextOr(ctx, fallback) != fallback {
		t.Fatal("expected fallback without a context logger")
	}

	l := zap.NewNop().Named("req")
	ctx = ContextWithLogger(ctx, l)
	if FromContext(ctx) != l || FromContextOr(ctx, fallback) != l {
		t.Fatal("expected the context logger")
	}
}
