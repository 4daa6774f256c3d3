package control

import (
	"context"
	"os"
	"testing"
	"time"
)

// newPipeKeyboard はパイプの読み取り側を監視するKeyboardSourceを組み立てる
func newPipeKeyboard(t *testing.T) (*KeyboardSource, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	k := NewKeyboardSource(10 * time.Millisecond)
	k.fd = int(r.Fd())
	return k, w
}

// waitListener はリスナーゴルーチンの終了を待つ
func waitListener(t *testing.T, k *KeyboardSource) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected keyboard listener to stop at stdin EOF")
	}
}

// TestKeyboardSource_StopsOnStdinEOF は標準入力の終端で監視が
// 自発的に終了することを検証する（ヘッドレス実行時の入力元）
func TestKeyboardSource_StopsOnStdinEOF(t *testing.T) {
	k, w := newPipeKeyboard(t)
	_ = w.Close() // 書き込み側を閉じて即座にEOFにする

	if err := k.Start(context.Background(), func(Command) {}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer k.Stop()

	waitListener(t, k)
}

// TestKeyboardSource_ReadsKeysThenStopsAtEOF はEOF前のキー入力が
// 取りこぼされないことを検証する
func TestKeyboardSource_ReadsKeysThenStopsAtEOF(t *testing.T) {
	k, w := newPipeKeyboard(t)

	got := make(chan Command, 1)
	if err := k.Start(context.Background(), func(cmd Command) { got <- cmd }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer k.Stop()

	if _, err := w.Write([]byte("r")); err != nil {
		t.Fatalf("Failed to write to pipe: %v", err)
	}
	_ = w.Close()

	select {
	case cmd := <-got:
		if cmd != CommandToggleRecording {
			t.Errorf("Expected toggle command, got %s", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the key written before EOF to be delivered")
	}

	waitListener(t, k)
}
