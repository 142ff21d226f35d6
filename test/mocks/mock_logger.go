package mocks

import (
	"sync"

	"github.com/hostedpay/saferpay-service/internal/adapters/ports"
)

// LogEntry represents a captured log entry
type LogEntry struct {
	Level   string
	Message string
	Fields  []ports.Field
}

// MockLogger is a mock implementation of Logger for testing
type MockLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

// NewMockLogger creates a new mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{Entries: []LogEntry{}}
}

func (m *MockLogger) log(level, msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// Info captures an info log entry
func (m *MockLogger) Info(msg string, fields ...ports.Field) { m.log("info", msg, fields...) }

// Error captures an error log entry
func (m *MockLogger) Error(msg string, fields ...ports.Field) { m.log("error", msg, fields...) }

// Warn captures a warn log entry
func (m *MockLogger) Warn(msg string, fields ...ports.Field) { m.log("warn", msg, fields...) }

// Debug captures a debug log entry
func (m *MockLogger) Debug(msg string, fields ...ports.Field) { m.log("debug", msg, fields...) }

// HasMessage reports whether any captured entry carries the given message
func (m *MockLogger) HasMessage(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}

// Reset clears captured entries
func (m *MockLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = []LogEntry{}
}
