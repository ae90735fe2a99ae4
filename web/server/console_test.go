package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandler_BasicLogging(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	logger := slog.New(NewConsoleHandler("test-render-123", messageChan, nil))

	logger.Info("pass completed", "pass", 2, "spp", 16)

	select {
	case msg := <-messageChan:
		if msg.Message != "pass completed pass=2 spp=16" {
			t.Errorf("Unexpected message %q", msg.Message)
		}
		if msg.Level != "info" {
			t.Errorf("Expected level 'info', got '%s'", msg.Level)
		}
		if time.Since(msg.Timestamp) > time.Second {
			t.Errorf("Timestamp seems too old: %v", msg.Timestamp)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for console message")
	}
}

func TestConsoleHandler_Levels(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	logger := slog.New(NewConsoleHandler("levels", messageChan, nil))

	logger.Debug("hidden")
	logger.Warn("careful")
	logger.Error("broken")

	if len(messageChan) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messageChan))
	}
	if msg := <-messageChan; msg.Level != "warning" || msg.Message != "careful" {
		t.Errorf("Unexpected warning %+v", msg)
	}
	if msg := <-messageChan; msg.Level != "error" {
		t.Errorf("Expected level 'error', got '%s'", msg.Level)
	}
}

func TestConsoleHandler_WithAttrs(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	logger := slog.New(NewConsoleHandler("attrs", messageChan, nil)).With("scene", "cornell")

	logger.Info("resumed")
	if msg := <-messageChan; msg.Message != "resumed scene=cornell" {
		t.Errorf("Unexpected message %q", msg.Message)
	}
}

func TestConsoleHandler_ForwardsToServerLog(t *testing.T) {
	var buf bytes.Buffer
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewConsoleHandler("render-7", nil, next))

	logger.Debug("adaptive sample distribution", "samples", 42)
	out := buf.String()
	if !strings.Contains(out, "render=render-7") || !strings.Contains(out, "samples=42") {
		t.Errorf("Server log missing fields: %s", out)
	}
}

func TestConsoleHandler_ChannelFull(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 1)
	logger := slog.New(NewConsoleHandler("full", messageChan, nil))

	done := make(chan struct{})
	go func() {
		logger.Info("first")
		logger.Info("dropped")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Logging blocked on a full channel")
	}
	if msg := <-messageChan; msg.Message != "first" {
		t.Errorf("Expected the first message, got %q", msg.Message)
	}
}

func TestConsoleHandler_NilChannel(t *testing.T) {
	logger := slog.New(NewConsoleHandler("nil", nil, nil))
	// Should not panic
	logger.Info("nobody listens")
}

func TestConsoleMessage_JSONSerialization(t *testing.T) {
	msg := ConsoleMessage{
		Message:   "Test message",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:     "info",
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	want := `{"message":"Test message","timestamp":"2024-01-01T12:00:00Z","level":"info"}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}
