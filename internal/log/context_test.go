// SPDX-License-Identifier: MIT

package log

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextWithSessionID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		sessionID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			sessionID: "sess-123",
			want:      "sess-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			sessionID: "sess-456",
			want:      "sess-456",
		},
		{
			name:      "empty session ID",
			ctx:       context.Background(),
			sessionID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithSessionID(tt.ctx, tt.sessionID)
			got := SessionIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("SessionIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionIDFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "nil context",
			ctx:  nil,
			want: "",
		},
		{
			name: "context without session ID",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "context with wrong type",
			ctx:  context.WithValue(context.Background(), sessionIDKey, 123),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SessionIDFromContext(tt.ctx)
			if got != tt.want {
				t.Errorf("SessionIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextWithBatchSeq(t *testing.T) {
	ctx := ContextWithBatchSeq(context.Background(), 42)
	seq, ok := BatchSeqFromContext(ctx)
	if !ok {
		t.Fatal("expected batch sequence to be present")
	}
	if seq != 42 {
		t.Errorf("BatchSeqFromContext() = %d, want 42", seq)
	}

	if _, ok := BatchSeqFromContext(context.Background()); ok {
		t.Error("expected no batch sequence in empty context")
	}
	if _, ok := BatchSeqFromContext(nil); ok {
		t.Error("expected no batch sequence in nil context")
	}
}

func TestWithContext(t *testing.T) {
	baseLogger := WithComponent("test")

	ctx1 := ContextWithSessionID(context.Background(), "sess-123")
	logger1 := WithContext(ctx1, baseLogger)
	if logger1.GetLevel() != baseLogger.GetLevel() {
		t.Error("Logger level should be preserved")
	}

	ctx2 := ContextWithBatchSeq(ctx1, 7)
	logger2 := WithContext(ctx2, baseLogger)
	if logger2.GetLevel() != baseLogger.GetLevel() {
		t.Error("Logger level should be preserved")
	}

	// Empty context should return original logger
	logger3 := WithContext(context.Background(), baseLogger)
	if logger3.GetLevel() != baseLogger.GetLevel() {
		t.Error("Logger level should be preserved")
	}
}

func TestWithComponentFromContext(t *testing.T) {
	logger := WithComponentFromContext(context.Background(), "test-component")
	if logger.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from WithComponentFromContext")
	}
}

func TestBase(t *testing.T) {
	baseLogger := Base()
	if baseLogger.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid base logger with reasonable log level")
	}
}

func TestDerive(t *testing.T) {
	logger1 := Derive(nil)
	if logger1.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from Derive with nil builder")
	}

	logger2 := Derive(func(ctx *zerolog.Context) {
		ctx.Str("custom_field", "test_value")
	})
	if logger2.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from Derive with custom builder")
	}
}
