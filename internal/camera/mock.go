package camera

import (
	"context"
	"fmt"
	"sync"

	"ryogan/internal/frame"
)

// MockDevice はテスト用のDevice実装
// 単調増加するシード値で塗りつぶしたフレームを返す
type MockDevice struct {
	path     string
	settings Settings

	mu         sync.Mutex
	opened     bool
	seq        byte
	OpenCount  int
	CloseCount int

	// エラー注入用
	FailOpen    bool
	FailCapture bool

	// OnOpen はOpen成功時に呼ばれる（初期化順序の検証用）
	OnOpen func(path string)
}

// NewMockDevice は新しいMockDeviceを作成する
func NewMockDevice(path string, settings Settings) *MockDevice {
	return &MockDevice{path: path, settings: settings}
}

// Path はデバイスパスを返す
func (m *MockDevice) Path() string {
	return m.path
}

// Open はデバイス取得を模擬する
func (m *MockDevice) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOpen {
		return fmt.Errorf("モックデバイス %s のオープンに失敗", m.path)
	}
	m.opened = true
	m.OpenCount++
	if m.OnOpen != nil {
		m.OnOpen(m.path)
	}
	return nil
}

// Capture は塗りつぶしフレームを返す
func (m *MockDevice) Capture(_ context.Context) (frame.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return frame.Frame{}, fmt.Errorf("モックデバイス %s はオープンされていません: %w", m.path, ErrCapture)
	}
	if m.FailCapture {
		return frame.Frame{}, fmt.Errorf("モックデバイス %s のキャプチャに失敗: %w", m.path, ErrCapture)
	}

	m.seq++
	f := frame.New(m.settings.Width, m.settings.Height)
	for i := range f.Data {
		f.Data[i] = m.seq
	}
	return f, nil
}

// Close はデバイス解放を模擬する（冪等）
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return nil
	}
	m.opened = false
	m.CloseCount++
	return nil
}

// IsOpened は現在オープン中かを返す
func (m *MockDevice) IsOpened() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}
