package control

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// KeyboardSource は標準入力をpoll(2)で非ブロッキングに監視する入力ソース
// 端末をrawモードにしてキーを1文字ずつ読み、停止フラグは
// ポーリング間隔ごとに確認される
type KeyboardSource struct {
	fd           int
	pollInterval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	restore func()
	started bool
}

// NewKeyboardSource は新しいKeyboardSourceを作成する
func NewKeyboardSource(pollInterval time.Duration) *KeyboardSource {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &KeyboardSource{
		fd:           int(os.Stdin.Fd()),
		pollInterval: pollInterval,
	}
}

// Name はソースの表示名を返す
func (k *KeyboardSource) Name() string {
	return "keyboard"
}

// Start はキーボードリスナーを開始する
func (k *KeyboardSource) Start(_ context.Context, emit func(Command)) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return nil
	}

	// rawモードにして行バッファリングを無効化する
	// 端末でない場合（パイプ実行など）はそのまま読む
	if oldState, err := term.MakeRaw(k.fd); err == nil {
		k.restore = func() { _ = term.Restore(k.fd, oldState) }
	} else {
		log.Printf("標準入力はrawモードにできません（端末以外）: %v", err)
	}

	k.stopCh = make(chan struct{})
	k.started = true

	k.wg.Add(1)
	go k.listen(emit)
	return nil
}

// listen はキー入力を監視するループ
func (k *KeyboardSource) listen(emit func(Command)) {
	defer k.wg.Done()

	fds := []unix.PollFd{{Fd: int32(k.fd), Events: unix.POLLIN}}
	buf := make([]byte, 1)

	for {
		select {
		case <-k.stopCh:
			return
		default:
		}

		// ポーリング間隔を上限に入力を待つ（停止を遅延なく観測するため）
		n, err := unix.Poll(fds, int(k.pollInterval.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			log.Printf("キーボードのポーリングに失敗: %v", err)
			return
		}
		if n == 0 {
			continue // タイムアウト
		}

		read, err := unix.Read(k.fd, buf)
		if err != nil {
			continue
		}
		if read == 0 {
			// EOF: 閉じられた標準入力は以後も常に可読と報告されるため、
			// 再ポーリングせず監視を終了する（他の入力手段は有効のまま）
			log.Println("標準入力が閉じられたためキーボード監視を終了します")
			return
		}

		if cmd, ok := keyToCommand(buf[0]); ok {
			emit(cmd)
		}
	}
}

// keyToCommand はキー入力を論理コマンドへ写像する
// r: 録画切替, q: 終了 (Ctrl+Cも終了として扱う)
func keyToCommand(key byte) (Command, bool) {
	switch key {
	case 'r', 'R':
		return CommandToggleRecording, true
	case 'q', 'Q', 0x03:
		return CommandQuit, true
	default:
		return 0, false
	}
}

// Stop はリスナーを停止し、端末状態を復元する（冪等）
func (k *KeyboardSource) Stop() {
	k.mu.Lock()
	if !k.started {
		k.mu.Unlock()
		return
	}
	k.started = false
	close(k.stopCh)
	restore := k.restore
	k.restore = nil
	k.mu.Unlock()

	k.wg.Wait()
	if restore != nil {
		restore()
	}
}
