package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"ryogan/internal/frame"
)

// V4L2Device はgo4vlを使ったDeviceの実装
// デバイスはRGB24で構成され、フレームは生バッファとして取得される
type V4L2Device struct {
	path           string
	settings       Settings
	captureTimeout time.Duration

	mu     sync.Mutex
	dev    *device.Device
	cancel context.CancelFunc
	opened bool
}

// NewV4L2Device は新しいV4L2Deviceを作成する
// captureTimeoutが0より大きい場合、ハードウェアのハングを
// エラーとして報告するウォッチドッグとして機能する
func NewV4L2Device(path string, settings Settings, captureTimeout time.Duration) *V4L2Device {
	return &V4L2Device{
		path:           path,
		settings:       settings,
		captureTimeout: captureTimeout,
	}
}

// Path はデバイスパスを返す
func (d *V4L2Device) Path() string {
	return d.path
}

// Open はデバイスを取得し、ストリーミングを開始する
func (d *V4L2Device) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		return nil // 既にオープン済み
	}

	dev, err := device.Open(
		d.path,
		device.WithBufferSize(2),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtRGB24,
			Width:       uint32(d.settings.Width),
			Height:      uint32(d.settings.Height),
		}),
		device.WithFPS(uint32(d.settings.FPS)),
	)
	if err != nil {
		return fmt.Errorf("デバイス %s のオープンに失敗: %w", d.path, err)
	}

	// ストリーミングの寿命はCloseで管理するため、独立したコンテキストを使う
	streamCtx, cancel := context.WithCancel(context.Background())
	if err := dev.Start(streamCtx); err != nil {
		cancel()
		_ = dev.Close()
		return fmt.Errorf("デバイス %s のストリーミング開始に失敗: %w", d.path, err)
	}

	d.dev = dev
	d.cancel = cancel
	d.opened = true
	return nil
}

// Capture は1フレームを取得する
// ストリームの次のバッファを待ち、コピーを返す
func (d *V4L2Device) Capture(ctx context.Context) (frame.Frame, error) {
	d.mu.Lock()
	dev := d.dev
	opened := d.opened
	d.mu.Unlock()

	if !opened || dev == nil {
		return frame.Frame{}, fmt.Errorf("デバイス %s はオープンされていません: %w", d.path, ErrCapture)
	}

	var timeout <-chan time.Time
	if d.captureTimeout > 0 {
		timer := time.NewTimer(d.captureTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case buf, ok := <-dev.GetOutput():
		if !ok {
			return frame.Frame{}, fmt.Errorf("デバイス %s のストリームが終了しました: %w", d.path, ErrCapture)
		}
		expected := d.settings.Width * d.settings.Height * frame.Channels
		if len(buf) < expected {
			return frame.Frame{}, fmt.Errorf("デバイス %s のフレーム長が不正 (期待 %d, 実際 %d): %w",
				d.path, expected, len(buf), ErrCapture)
		}
		// バッファはドライバに再利用されるためコピーを返す
		data := make([]byte, expected)
		copy(data, buf)
		return frame.Frame{Width: d.settings.Width, Height: d.settings.Height, Data: data}, nil

	case <-timeout:
		return frame.Frame{}, fmt.Errorf("デバイス %s のキャプチャがタイムアウトしました (%s): %w",
			d.path, d.captureTimeout, ErrCapture)

	case <-ctx.Done():
		return frame.Frame{}, fmt.Errorf("デバイス %s のキャプチャが中断されました: %w", d.path, ErrCapture)
	}
}

// Close はデバイスを解放する（冪等）
func (d *V4L2Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return nil // 既にクローズ済みか未初期化
	}

	d.cancel()
	err := d.dev.Close()
	d.dev = nil
	d.opened = false

	if err != nil {
		return fmt.Errorf("デバイス %s のクローズに失敗: %w", d.path, err)
	}
	return nil
}
