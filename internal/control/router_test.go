package control

import (
	"context"
	"fmt"
	"testing"
)

// mockSource はテスト用のSource実装
type mockSource struct {
	name      string
	emit      func(Command)
	failStart bool
	started   bool
	stopped   bool
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Start(_ context.Context, emit func(Command)) error {
	if m.failStart {
		return fmt.Errorf("開始失敗（モック）")
	}
	m.emit = emit
	m.started = true
	return nil
}

func (m *mockSource) Stop() { m.stopped = true }

func TestRouter_CommandsReachState(t *testing.T) {
	state := NewState()
	source := &mockSource{name: "mock"}
	router := NewRouter(state, source)

	if err := router.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer router.Stop()

	// ソースからのコマンドが共有状態へ届く
	source.emit(CommandToggleRecording)
	if !state.RecordingRequested() {
		t.Error("Expected toggle command to reach the shared state")
	}

	source.emit(CommandQuit)
	if !state.Stopped() {
		t.Error("Expected quit command to reach the shared state")
	}
}

func TestRouter_MultipleSourcesShareState(t *testing.T) {
	// キーボードとボタンが同じ状態へ書き込む（last-writer-wins）
	state := NewState()
	keyboard := &mockSource{name: "keyboard"}
	buttons := &mockSource{name: "buttons"}
	router := NewRouter(state, keyboard, buttons)

	if err := router.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer router.Stop()

	keyboard.emit(CommandToggleRecording)
	buttons.emit(CommandToggleRecording)
	if state.RecordingRequested() {
		t.Error("Expected two toggles from different sources to cancel out")
	}
}

func TestRouter_StartFailureStopsStarted(t *testing.T) {
	state := NewState()
	ok := &mockSource{name: "ok"}
	bad := &mockSource{name: "bad", failStart: true}
	router := NewRouter(state, ok, bad)

	if err := router.Start(context.Background()); err == nil {
		t.Fatal("Expected start failure to propagate")
	}

	// 開始済みのソースは巻き戻される
	if !ok.stopped {
		t.Error("Expected already-started source to be stopped on failure")
	}
}

func TestRouter_StopStopsAllSources(t *testing.T) {
	state := NewState()
	a := &mockSource{name: "a"}
	b := &mockSource{name: "b"}
	router := NewRouter(state, a, b)

	if err := router.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	router.Stop()

	if !a.stopped || !b.stopped {
		t.Error("Expected all sources to be stopped")
	}
}
