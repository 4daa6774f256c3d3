package control

import (
	"testing"
	"time"
)

func TestState_ApplyToggleRecording(t *testing.T) {
	s := NewState()

	if s.RecordingRequested() {
		t.Fatal("Expected recording off initially")
	}

	// トグルは冪等な切り替え
	s.Apply(CommandToggleRecording)
	if !s.RecordingRequested() {
		t.Error("Expected recording on after first toggle")
	}

	s.Apply(CommandToggleRecording)
	if s.RecordingRequested() {
		t.Error("Expected recording off after second toggle")
	}
}

func TestState_ApplyQuit(t *testing.T) {
	s := NewState()

	if s.Stopped() {
		t.Fatal("Expected not stopped initially")
	}

	s.Apply(CommandQuit)
	if !s.Stopped() {
		t.Error("Expected stopped after quit command")
	}

	// 停止フラグは戻らない
	s.Apply(CommandQuit)
	if !s.Stopped() {
		t.Error("Expected stop flag to remain set")
	}
}

func TestState_SetRecording(t *testing.T) {
	s := NewState()
	s.Apply(CommandToggleRecording)

	// 録画開始失敗時にループが要求を取り下げる経路
	s.SetRecording(false)
	if s.RecordingRequested() {
		t.Error("Expected recording request to be withdrawn")
	}
}

func TestCommand_String(t *testing.T) {
	testCases := []struct {
		cmd      Command
		expected string
	}{
		{CommandToggleRecording, "toggle_recording"},
		{CommandQuit, "quit"},
		{Command(99), "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.cmd.String(); got != tc.expected {
			t.Errorf("Command(%d).String() = %q, expected %q", tc.cmd, got, tc.expected)
		}
	}
}

func TestKeyToCommand(t *testing.T) {
	testCases := []struct {
		key      byte
		expected Command
		ok       bool
	}{
		{'r', CommandToggleRecording, true},
		{'R', CommandToggleRecording, true},
		{'q', CommandQuit, true},
		{'Q', CommandQuit, true},
		{0x03, CommandQuit, true}, // Ctrl+C
		{'x', 0, false},
		{' ', 0, false},
	}

	for _, tc := range testCases {
		cmd, ok := keyToCommand(tc.key)
		if ok != tc.ok || cmd != tc.expected {
			t.Errorf("keyToCommand(%q) = (%v, %v), expected (%v, %v)",
				tc.key, cmd, ok, tc.expected, tc.ok)
		}
	}
}

func TestDebouncer(t *testing.T) {
	d := debouncer{interval: 300 * time.Millisecond}
	base := time.Now()

	// 最初のトリガーは受理される
	if !d.Accept(base) {
		t.Fatal("Expected first trigger to be accepted")
	}

	// 300ms未満の連続トリガーは1回にまとめられる
	if d.Accept(base.Add(100 * time.Millisecond)) {
		t.Error("Expected trigger within 300ms to be rejected")
	}
	if d.Accept(base.Add(299 * time.Millisecond)) {
		t.Error("Expected trigger at 299ms to be rejected")
	}

	// 300ms以降のトリガーは受理される
	if !d.Accept(base.Add(300 * time.Millisecond)) {
		t.Error("Expected trigger at 300ms to be accepted")
	}
}

func TestDebouncer_SingleMutation(t *testing.T) {
	// 300ms以内の2つのボタンイベントはControlStateをちょうど1回だけ変化させる
	s := NewState()
	d := debouncer{interval: 300 * time.Millisecond}
	base := time.Now()

	for _, offset := range []time.Duration{0, 50 * time.Millisecond} {
		if d.Accept(base.Add(offset)) {
			s.Apply(CommandToggleRecording)
		}
	}

	if !s.RecordingRequested() {
		t.Error("Expected exactly one toggle: recording should be on")
	}
}
