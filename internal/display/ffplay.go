// Package display は外部ビューアプロセスへのライブ表示を担う
//
// ビューア（ffplay）は生ピクセルを標準入力で受け取る子プロセスとして起動され、
// フレームは応答確認なしで流し込まれる（fire-and-forget）。
// ビューアが終了した場合の書き込み失敗は表示経路のみの致命として扱い、
// キャプチャループや進行中の録画は継続できる。
package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"
)

// エラー種別
// ErrOpen は起動時の致命的エラー（ライブ表示は本プログラムの主目的のため）、
// ErrWrite は表示経路のみの致命的エラーを表す
var (
	ErrOpen  = errors.New("表示シンクのオープンに失敗しました")
	ErrWrite = errors.New("表示シンクへの書き込みに失敗しました")
)

// FFplaySink はffplay子プロセスへフレームを流し込むシンク
type FFplaySink struct {
	ffplayPath  string
	windowTitle string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	opened bool
	closed bool
}

// NewFFplaySink は新しいFFplaySinkを作成する
func NewFFplaySink(ffplayPath, windowTitle string) *FFplaySink {
	return &FFplaySink{
		ffplayPath:  ffplayPath,
		windowTitle: windowTitle,
	}
}

// buildArgs はffplayの起動引数を組み立てる
// ピクセルフォーマットはBGR24固定で、寸法はステレオフレームと一致する
func (s *FFplaySink) buildArgs(width, height int) []string {
	return []string{
		"-f", "rawvideo",
		"-pixel_format", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-i", "pipe:0",
		"-window_title", s.windowTitle,
	}
}

// Open はビューアプロセスを起動して転送路を確立する
func (s *FFplaySink) Open(ctx context.Context, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil // 既にオープン済み
	}
	if s.closed {
		return fmt.Errorf("クローズ済みのシンクです: %w", ErrOpen)
	}

	cmd := exec.CommandContext(ctx, s.ffplayPath, s.buildArgs(width, height)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdinパイプの作成に失敗 (%v): %w", err, ErrOpen)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ビューア %s の起動に失敗 (%v): %w", s.ffplayPath, err, ErrOpen)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.opened = true
	log.Printf("ビューアを起動しました: %s (%dx%d)", s.ffplayPath, width, height)
	return nil
}

// Write はフレームの生バイト列を転送する
// ビューアが終了して転送路が閉じた場合はErrWriteを返し、
// 以降の書き込みも拒否する（シンクは閉じた状態に固定される）
func (s *FFplaySink) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return fmt.Errorf("転送路が閉じています: %w", ErrWrite)
	}
	if _, err := s.stdin.Write(data); err != nil {
		// ビューアが終了した可能性が高い。以降は書き込み不可
		s.opened = false
		return fmt.Errorf("フレームの転送に失敗 (%v): %w", err, ErrWrite)
	}
	return nil
}

// Close はビューアプロセスを終了して転送路を解放する（冪等）
func (s *FFplaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.cmd == nil {
		return nil // 起動前にクローズされた
	}

	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait() // 終了コードは問わない（強制終了のため）

	log.Println("ビューアを終了しました")
	return nil
}

// ValidateFFplay はffplayが利用可能かチェックする
func ValidateFFplay(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffplayが見つかりません。インストールしてください: %w", err)
	}
	return nil
}
