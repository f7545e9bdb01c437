// Copyright 2022-2026 The N42 Authors
// This file is part of the N42 library.

package log

import "testing"

// TestLogLevels 测试日志级别
func TestLogLevels(t *testing.T) {
	tests := []struct {
		level Lvl
		name  string
	}{
		{LvlCrit, "Crit"},
		{LvlError, "Error"},
		{LvlWarn, "Warn"},
		{LvlInfo, "Info"},
		{LvlDebug, "Debug"},
		{LvlTrace, "Trace"},
	}

	for i, tt := range tests {
		if int(tt.level) != i {
			t.Errorf("Level %s expected value %d, got %d", tt.name, i, tt.level)
		}
	}
	t.Log("✓ All log levels are correctly defined")
}

// TestLoggerInterface 测试 Logger 接口
func TestLoggerInterface(t *testing.T) {
	var _ Logger = &logger{}
	t.Log("✓ logger implements Logger interface")
}

// TestRootLogger 测试根日志器
func TestRootLogger(t *testing.T) {
	if Root() == nil {
		t.Fatal("Root logger should not be nil")
	}
	t.Log("✓ Root logger is available")
}

// TestNewLogger 测试创建新日志器
func TestNewLogger(t *testing.T) {
	l := New("module", "test")
	if l == nil {
		t.Fatal("New logger should not be nil")
	}
	t.Log("✓ New logger created successfully")
}

// TestInitConsoleOnly 测试控制台输出初始化
func TestInitConsoleOnly(t *testing.T) {
	Init("info", false)
	Info("Test console output")
	t.Log("✓ Console logging works")
}

// TestInitJSON 测试 JSON 格式初始化
func TestInitJSON(t *testing.T) {
	Init("debug", true)
	Info("Test JSON output")
	t.Log("✓ JSON logging works")
}

// TestInitUnknownLevel 测试未知级别回退为 info
func TestInitUnknownLevel(t *testing.T) {
	Init("not-a-level", false)
	Info("fallback level test")
	t.Log("✓ Unknown level falls back to info")
}

// TestLogOutput 测试各级别日志输出
func TestLogOutput(t *testing.T) {
	Init("trace", false)

	Trace("trace message")
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	Tracef("trace %s", "formatted")
	Debugf("debug %s", "formatted")
	Infof("info %s", "formatted")
	Warnf("warn %s", "formatted")
	Errorf("error %s", "formatted")

	Info("with context", "key1", "value1", "key2", 123)
	t.Log("✓ All log levels output correctly")
}

// TestLoggerWithContext 测试带上下文的日志器
func TestLoggerWithContext(t *testing.T) {
	l := New("module", "test", "version", "1.0")
	l.Info("test message", "extra", "data")

	child := l.New("stage", "emit")
	child.Warn("child context carried forward")
	t.Log("✓ Logger with context works")
}
