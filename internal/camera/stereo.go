package camera

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ryogan/internal/frame"
)

// StereoSource は2台のカメラデバイスを束ねるステレオソース
// 初期化は順次実行され、各デバイスの起動後にウォームアップ待機を入れる
// （同時初期化は制約の強いハードウェアでバス競合を起こすことがある）
type StereoSource struct {
	left   Device
	right  Device
	warmup time.Duration

	mu     sync.Mutex
	opened bool
	closed bool
}

// NewStereoSource は新しいStereoSourceを作成する
func NewStereoSource(left, right Device, warmup time.Duration) *StereoSource {
	return &StereoSource{
		left:   left,
		right:  right,
		warmup: warmup,
	}
}

// Open は両デバイスを順次取得する
// いずれかのデバイスで失敗した場合、取得済みのデバイスを
// 解放してからエラーを返す（部分的なリークを残さない）
func (s *StereoSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil // 既にオープン済み
	}
	if s.closed {
		return fmt.Errorf("クローズ済みのソースです: %w", ErrCameraInit)
	}

	log.Printf("カメラ1 (%s) を初期化しています...", s.left.Path())
	if err := s.left.Open(ctx); err != nil {
		return fmt.Errorf("カメラ1 (%s) の初期化に失敗 (%v): %w", s.left.Path(), err, ErrCameraInit)
	}
	log.Printf("カメラ1 (%s) を初期化しました", s.left.Path())

	if err := s.wait(ctx); err != nil {
		_ = s.left.Close()
		return err
	}

	log.Printf("カメラ2 (%s) を初期化しています...", s.right.Path())
	if err := s.right.Open(ctx); err != nil {
		_ = s.left.Close()
		return fmt.Errorf("カメラ2 (%s) の初期化に失敗 (%v): %w", s.right.Path(), err, ErrCameraInit)
	}
	log.Printf("カメラ2 (%s) を初期化しました", s.right.Path())

	if err := s.wait(ctx); err != nil {
		_ = s.left.Close()
		_ = s.right.Close()
		return err
	}

	s.opened = true
	log.Println("両方のカメラを初期化しました")
	return nil
}

// wait はウォームアップ待機を行う
func (s *StereoSource) wait(ctx context.Context) error {
	if s.warmup <= 0 {
		return nil
	}
	select {
	case <-time.After(s.warmup):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ウォームアップ待機が中断されました: %w", ErrCameraInit)
	}
}

// CaptureStereoPair は左右1フレームずつを取得する
// 両フレームが揃うまでブロックする
func (s *StereoSource) CaptureStereoPair(ctx context.Context) (frame.Frame, frame.Frame, error) {
	s.mu.Lock()
	opened := s.opened
	closed := s.closed
	s.mu.Unlock()

	if !opened || closed {
		return frame.Frame{}, frame.Frame{}, fmt.Errorf("カメラが初期化されていません: %w", ErrCapture)
	}

	left, err := s.left.Capture(ctx)
	if err != nil {
		return frame.Frame{}, frame.Frame{}, fmt.Errorf("カメラ1: %w", err)
	}

	right, err := s.right.Capture(ctx)
	if err != nil {
		return frame.Frame{}, frame.Frame{}, fmt.Errorf("カメラ2: %w", err)
	}

	return left, right, nil
}

// Close は両デバイスを解放する
// 複数回の呼び出しや部分初期化状態でも安全に動作する（冪等）
func (s *StereoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // 既にクローズ済み
	}
	s.closed = true
	s.opened = false

	var closeErrors []error
	if err := s.left.Close(); err != nil {
		closeErrors = append(closeErrors, fmt.Errorf("カメラ1の解放に失敗: %w", err))
	}
	if err := s.right.Close(); err != nil {
		closeErrors = append(closeErrors, fmt.Errorf("カメラ2の解放に失敗: %w", err))
	}

	if len(closeErrors) > 0 {
		return fmt.Errorf("一部のカメラ解放に失敗: %v", closeErrors)
	}

	log.Println("カメラを停止しました")
	return nil
}
