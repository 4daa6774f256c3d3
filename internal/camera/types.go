package camera

import (
	"context"
	"errors"

	"ryogan/internal/frame"
)

// エラー種別
// ErrCameraInit はループ開始前の致命的エラー、
// ErrCapture はループ中の致命的エラーとして扱われる
var (
	ErrCameraInit = errors.New("カメラの初期化に失敗しました")
	ErrCapture    = errors.New("フレームのキャプチャに失敗しました")
)

// Settings はカメラの設定
// 2台のカメラは同一の設定で構成されなければならない
type Settings struct {
	Width  int // 画像幅
	Height int // 画像高さ
	FPS    int // フレームレート
}

// Device は1台の物理カメラへの排他的アクセスを表す
// 起動時に一度だけOpenされ、終了時に一度だけCloseされる
type Device interface {
	// Open はデバイスを取得し、解像度とピクセルフォーマットを構成する
	Open(ctx context.Context) error

	// Capture は1フレームを取得する（ブロッキング）
	Capture(ctx context.Context) (frame.Frame, error)

	// Close はデバイスを解放する（冪等）
	Close() error

	// Path はデバイスパスを返す
	Path() string
}
