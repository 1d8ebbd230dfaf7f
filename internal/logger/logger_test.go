package logger

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	entry := WithComponent("test-component")
	if entry == nil {
		t.Fatal("expected non-nil entry")
	}

	// Check that the component field is set
	if val, ok := entry.Data["component"]; !ok {
		t.Error("expected component field to be set")
	} else if val != "test-component" {
		t.Errorf("expected component 'test-component', got '%v'", val)
	}
}

func TestLoggerInit(t *testing.T) {
	// Test that Logger is initialized
	if Logger == nil {
		t.Fatal("expected Logger to be initialized")
	}

	// Test that Logger has the expected output
	if Logger.Out != os.Stdout {
		t.Error("expected Logger output to be os.Stdout")
	}
}

func TestApplyLevel(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	tests := []struct {
		name          string
		value         string
		ok            bool
		expectedLevel logrus.Level
	}{
		{"debug level", "debug", true, logrus.DebugLevel},
		{"info level", "info", true, logrus.InfoLevel},
		{"warn level", "warn", true, logrus.WarnLevel},
		{"error level", "error", true, logrus.ErrorLevel},
		{"DEBUG uppercase", "DEBUG", true, logrus.DebugLevel},
		{"invalid level", "invalid", false, logrus.InfoLevel}, // keeps the previous level
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger.SetLevel(logrus.InfoLevel)

			if got := ApplyLevel(tt.value); got != tt.ok {
				t.Errorf("ApplyLevel(%q) = %v, want %v", tt.value, got, tt.ok)
			}
			if Logger.GetLevel() != tt.expectedLevel {
				t.Errorf("expected level %v, got %v", tt.expectedLevel, Logger.GetLevel())
			}
		})
	}
}

func TestWithSession(t *testing.T) {
	entry := WithSession("autosave", "abc-123")

	if entry.Data["component"] != "autosave" {
		t.Errorf("expected component 'autosave', got '%v'", entry.Data["component"])
	}
	if entry.Data["session"] != "abc-123" {
		t.Errorf("expected session 'abc-123', got '%v'", entry.Data["session"])
	}
}

func TestWithComponentMultiple(t *testing.T) {
	entry1 := WithComponent("component-a")
	entry2 := WithComponent("component-b")

	if entry1.Data["component"] == entry2.Data["component"] {
		t.Error("expected different component values for different entries")
	}
}
