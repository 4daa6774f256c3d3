package record

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// FFmpegFactory はffmpegの子プロセスでMP4コンテナを生成するSinkFactory
// 生のBGR24フレームを標準入力で受け取り、libx264でエンコードする
type FFmpegFactory struct {
	FFmpegPath string // ffmpegコマンドのパス
	Quality    int    // 動画品質 (1-5)
}

// Open はセッションに対応するffmpegプロセスを起動する
func (f *FFmpegFactory) Open(session Session) (Sink, error) {
	cmd := exec.Command(f.FFmpegPath,
		"-f", "rawvideo",
		"-pixel_format", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", session.Width, session.Height),
		"-framerate", strconv.Itoa(session.FPS),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", qualityToCRF(f.Quality),
		"-pix_fmt", "yuv420p",
		"-y", // 上書き許可
		session.Path,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdinパイプの作成に失敗: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	return &ffmpegSink{cmd: cmd, stdin: stdin, stderr: &stderr}, nil
}

// ffmpegSink は起動済みffmpegプロセスへのSink実装
type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer

	mu     sync.Mutex
	closed bool
}

// Write は1フレームを標準入力へ書き込む
func (s *ffmpegSink) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("シンクはクローズ済みです")
	}
	if _, err := s.stdin.Write(data); err != nil {
		return fmt.Errorf("ffmpegへの書き込みに失敗: %w", err)
	}
	return nil
}

// Close は標準入力を閉じてffmpegの終了を待つ
// 終了を待つことでコンテナのフラッシュが保証される
func (s *ffmpegSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stdin.Close(); err != nil {
		_ = s.cmd.Wait()
		return fmt.Errorf("stdinのクローズに失敗: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpegの終了に失敗: %w (stderr: %s)", err, tail(s.stderr.String(), 512))
	}
	return nil
}

// qualityToCRF は品質設定をFFmpegのCRF値に変換する
// 品質1(低) -> CRF28, 品質5(高) -> CRF18
func qualityToCRF(quality int) string {
	crf := 28.0 - float64(quality-1)*2.5
	if crf < 18 {
		crf = 18
	}
	if crf > 28 {
		crf = 28
	}
	return strconv.FormatFloat(crf, 'f', 1, 64)
}

// tail は文字列の末尾n文字を返す
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// ValidateFFmpeg はffmpegが利用可能かチェックする
func ValidateFFmpeg(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpegが見つかりません。インストールしてください: %w", err)
	}
	return nil
}
