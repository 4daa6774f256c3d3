package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ryogan/internal/camera"
	"ryogan/internal/control"
	"ryogan/internal/frame"
	"ryogan/internal/record"
)

// countingSink はテスト用の録画シンク
type countingSink struct {
	mu         sync.Mutex
	frames     [][]byte
	closeCount int
	failWrite  bool
	afterWrite func(n int)
}

func (s *countingSink) Write(data []byte) error {
	s.mu.Lock()
	if s.failWrite {
		s.mu.Unlock()
		return fmt.Errorf("書き込み失敗（モック）")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.frames = append(s.frames, buf)
	n := len(s.frames)
	hook := s.afterWrite
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

func (s *countingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return nil
}

// countingFactory はテスト用のSinkFactory
type countingFactory struct {
	mu         sync.Mutex
	sinks      []*countingSink
	afterWrite func(n int)
}

func (f *countingFactory) Open(_ record.Session) (record.Sink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sink := &countingSink{afterWrite: f.afterWrite}
	f.sinks = append(f.sinks, sink)
	return sink, nil
}

// countingDisplay はテスト用の表示シンク
type countingDisplay struct {
	mu         sync.Mutex
	writes     int
	closeCount int
	failWrite  bool
	afterWrite func(n int)
}

func (d *countingDisplay) Write(_ []byte) error {
	d.mu.Lock()
	if d.failWrite {
		d.mu.Unlock()
		return fmt.Errorf("表示転送失敗（モック）")
	}
	d.writes++
	n := d.writes
	hook := d.afterWrite
	d.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

func (d *countingDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCount++
	return nil
}

// newTestRig はモックカメラで構成したループ一式を組み立てる
func newTestRig(t *testing.T, width, height int) (*Loop, *camera.MockDevice, *camera.MockDevice, *camera.StereoSource, *countingFactory, *countingDisplay, *control.State) {
	t.Helper()
	settings := camera.Settings{Width: width, Height: height, FPS: 30}
	left := camera.NewMockDevice("/dev/video0", settings)
	right := camera.NewMockDevice("/dev/video1", settings)
	source := camera.NewStereoSource(left, right, 0)
	if err := source.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	factory := &countingFactory{}
	recorder := record.New(factory, t.TempDir(), 30, 3)
	displaySink := &countingDisplay{}
	state := control.NewState()
	router := control.NewRouter(state)

	loop := New(source, recorder, displaySink, state, router)
	return loop, left, right, source, factory, displaySink, state
}

// TestLoop_EndToEnd は仕様のエンドツーエンドシナリオを検証する
// 録画オフで10フレーム → 録画オンで10フレーム → 停止
func TestLoop_EndToEnd(t *testing.T) {
	loop, left, right, _, factory, displaySink, state := newTestRig(t, 80, 60)

	var released bool
	loop.ReleaseInput = func() { released = true }

	// 表示書き込みはティックの最後の操作なので、ここでコマンドを注入する
	displaySink.afterWrite = func(n int) {
		switch n {
		case 10:
			state.Apply(control.CommandToggleRecording)
		case 20:
			state.Apply(control.CommandToggleRecording)
			state.Apply(control.CommandQuit)
		}
	}

	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 最初の10フレーム: 録画書き込み0回、表示書き込み10回
	// 次の10フレーム: 録画書き込み10回、表示書き込み10回
	if displaySink.writes != 20 {
		t.Errorf("Expected 20 display writes, got %d", displaySink.writes)
	}
	if len(factory.sinks) != 1 {
		t.Fatalf("Expected exactly 1 recording sink, got %d", len(factory.sinks))
	}
	sink := factory.sinks[0]
	if len(sink.frames) != 10 {
		t.Errorf("Expected 10 recorded frames, got %d", len(sink.frames))
	}

	// 録画された全フレームにマーカー注釈が入っている
	// （BGR並びなので赤は [0, 0, 255]）
	bounds := frame.MarkerBounds()
	stereoWidth := 80 * 2
	for i, f := range sink.frames {
		found := false
		for y := bounds.Min.Y; y < bounds.Max.Y && !found; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				p := (y*stereoWidth + x) * frame.Channels
				if f[p] == 0 && f[p+1] == 0 && f[p+2] == 255 {
					found = true
					break
				}
			}
		}
		if !found {
			t.Errorf("Recorded frame %d is missing the REC marker", i)
		}
	}

	// 終了シーケンス: シンクはちょうど1回クローズ、表示・カメラも解放済み
	if sink.closeCount != 1 {
		t.Errorf("Expected recording sink closed exactly once, got %d", sink.closeCount)
	}
	if displaySink.closeCount != 1 {
		t.Errorf("Expected display sink closed exactly once, got %d", displaySink.closeCount)
	}
	if left.CloseCount != 1 || right.CloseCount != 1 {
		t.Errorf("Expected both cameras closed exactly once, got %d and %d",
			left.CloseCount, right.CloseCount)
	}
	if !released {
		t.Error("Expected input facility to be released")
	}
}

// TestLoop_DisplayFailureKeepsRecording は表示経路の失敗が録画を止めないことを検証する
func TestLoop_DisplayFailureKeepsRecording(t *testing.T) {
	loop, _, _, _, factory, displaySink, state := newTestRig(t, 80, 60)

	// 表示は常に失敗する
	displaySink.failWrite = true

	// 録画は最初から要求されており、5フレーム録画できたら停止する
	state.Apply(control.CommandToggleRecording)
	factory.afterWrite = func(n int) {
		if n >= 5 {
			state.Apply(control.CommandQuit)
		}
	}

	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(factory.sinks) != 1 {
		t.Fatalf("Expected 1 recording sink, got %d", len(factory.sinks))
	}
	if got := len(factory.sinks[0].frames); got < 5 {
		t.Errorf("Expected recording to continue after display failure, got %d frames", got)
	}
	if displaySink.writes != 0 {
		t.Errorf("Expected no successful display writes, got %d", displaySink.writes)
	}
}

// TestLoop_CaptureErrorIsFatal はキャプチャエラーで終了シーケンスが走ることを検証する
func TestLoop_CaptureErrorIsFatal(t *testing.T) {
	loop, left, right, _, _, displaySink, _ := newTestRig(t, 80, 60)

	left.FailCapture = true

	err := loop.Run(context.Background())
	if !errors.Is(err, camera.ErrCapture) {
		t.Fatalf("Expected ErrCapture, got %v", err)
	}

	// エラー終了でも全リソースが解放される
	if left.CloseCount != 1 || right.CloseCount != 1 {
		t.Errorf("Expected both cameras closed, got %d and %d", left.CloseCount, right.CloseCount)
	}
	if displaySink.closeCount != 1 {
		t.Errorf("Expected display sink closed, got %d", displaySink.closeCount)
	}
}

// TestLoop_RecordingWriteBudgetAbortsSession は録画書き込み失敗の中断方針を検証する
func TestLoop_RecordingWriteBudgetAbortsSession(t *testing.T) {
	loop, _, _, _, factory, displaySink, state := newTestRig(t, 80, 60)

	state.Apply(control.CommandToggleRecording)

	// 最初のシンクは常に書き込み失敗する
	var once sync.Once
	factory.afterWrite = func(int) {}
	displaySink.afterWrite = func(n int) {
		once.Do(func() {
			factory.mu.Lock()
			if len(factory.sinks) > 0 {
				factory.sinks[0].failWrite = true
			}
			factory.mu.Unlock()
		})
		// 上限3回 + 余裕を見て停止する
		if n >= 8 {
			state.Apply(control.CommandQuit)
		}
	}

	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// セッションは中断され、ループ自体は停止コマンドまで継続した
	if loop.recorder.IsRecording() {
		t.Error("Expected recording session to be aborted")
	}
	if displaySink.writes < 8 {
		t.Errorf("Expected loop to keep running after abort, got %d display writes", displaySink.writes)
	}
}

// TestLoop_SnapshotReflectsState はスナップショットの内容を検証する
func TestLoop_SnapshotReflectsState(t *testing.T) {
	loop, _, _, _, _, displaySink, state := newTestRig(t, 80, 60)

	displaySink.afterWrite = func(n int) {
		if n >= 3 {
			state.Apply(control.CommandQuit)
		}
	}

	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	status := loop.Snapshot()
	if status.Frames < 3 {
		t.Errorf("Expected at least 3 processed frames, got %d", status.Frames)
	}
	if !status.Stopping {
		t.Error("Expected stopping flag in snapshot")
	}
	if status.Recording {
		t.Error("Expected recording off in snapshot")
	}
}
