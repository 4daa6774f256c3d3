package record

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Controller は録画の状態機械（Idle/Recording）
// 遷移時にシンクの開閉を行い、シャットダウン時には
// 録画中のセッションを必ずフラッシュしてから閉じる
type Controller struct {
	factory          SinkFactory
	dir              string
	fps              int
	maxWriteFailures int

	mu            sync.Mutex
	state         State
	session       *Session
	sink          Sink
	writeFailures int
	closed        bool

	// notify は状態遷移時に呼ばれる（LED連動などに使用、任意）
	notify func(recording bool)
}

// New は新しいControllerを作成する
// maxWriteFailuresは連続書き込み失敗の許容回数で、
// 超過するとWriteFrameがErrSinkWriteを返す
func New(factory SinkFactory, dir string, fps, maxWriteFailures int) *Controller {
	return &Controller{
		factory:          factory,
		dir:              dir,
		fps:              fps,
		maxWriteFailures: maxWriteFailures,
		state:            StateIdle,
	}
}

// SetNotify は状態遷移の通知先を設定する
func (c *Controller) SetNotify(fn func(recording bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// State は現在の状態を返す
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsRecording は録画中かを返す
func (c *Controller) IsRecording() bool {
	return c.State() == StateRecording
}

// SessionPath は進行中セッションの出力パスを返す（待機中は空文字列）
func (c *Controller) SessionPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Path
}

// Toggle は状態を切り替える
// Idle→Recordingは寸法を確定してシンクを開き、
// Recording→Idleはシンクをフラッシュして閉じる
func (c *Controller) Toggle(width, height int) error {
	if c.IsRecording() {
		return c.Stop()
	}
	return c.Start(width, height)
}

// Start はIdle→Recordingの遷移を行う
// シンクのオープンに失敗した場合はErrSinkOpenを返し、状態はIdleのまま
func (c *Controller) Start(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("コントローラはクローズ済みです: %w", ErrSinkOpen)
	}
	if c.state == StateRecording {
		return nil // 既に録画中
	}

	now := time.Now()
	session := Session{
		ID:        uuid.New().String(),
		Path:      filepath.Join(c.dir, fmt.Sprintf("stereo_output_%s.mp4", now.Format("20060102-150405"))),
		Width:     width,
		Height:    height,
		FPS:       c.fps,
		StartedAt: now,
	}

	sink, err := c.factory.Open(session)
	if err != nil {
		return fmt.Errorf("セッション %s (%v): %w", session.Path, err, ErrSinkOpen)
	}

	c.session = &session
	c.sink = sink
	c.state = StateRecording
	c.writeFailures = 0
	log.Printf("録画を開始しました: %s", session.Path)

	if c.notify != nil {
		c.notify(true)
	}
	return nil
}

// Stop はRecording→Idleの遷移を行う
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() error {
	if c.state != StateRecording {
		return nil // 既に待機中
	}

	err := c.sink.Close()
	path := c.session.Path
	c.sink = nil
	c.session = nil
	c.state = StateIdle

	if c.notify != nil {
		c.notify(false)
	}

	if err != nil {
		return fmt.Errorf("録画 %s のクローズに失敗: %w", path, err)
	}
	log.Printf("録画を停止しました: %s", path)
	return nil
}

// WriteFrame はBGR24フレームをシンクへ転送する
// 待機中は何もしない。単発の書き込み失敗はログに残して継続し、
// 連続失敗が上限を超えた場合のみErrSinkWriteを返して
// 呼び出し側にセッション中断の判断を委ねる
func (c *Controller) WriteFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return nil
	}

	if err := c.sink.Write(data); err != nil {
		c.writeFailures++
		log.Printf("録画フレームの書き込みに失敗 (%d/%d): %v",
			c.writeFailures, c.maxWriteFailures, err)
		if c.writeFailures >= c.maxWriteFailures {
			return fmt.Errorf("連続 %d 回の書き込みに失敗 (%v): %w",
				c.writeFailures, err, ErrSinkWrite)
		}
		return nil
	}

	c.writeFailures = 0
	return nil
}

// Abort は進行中のセッションを中断して閉じる
// 書き込み失敗の上限超過後に呼ばれる
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return
	}
	log.Printf("録画セッションを中断します: %s", c.session.Path)
	if err := c.stopLocked(); err != nil {
		log.Printf("中断時のクローズに失敗: %v", err)
	}
}

// Close はシャットダウン時の後始末を行う（冪等）
// 録画中であればシンクをフラッシュしてから閉じる
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.stopLocked()
}
