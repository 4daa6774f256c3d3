package control

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// ButtonSource はGPIOラインのエッジイベントを監視する入力ソース
// 録画ボタンと終了ボタンの2本の入力ラインに加え、
// 録画状態を示すLED用の出力ラインを1本持てる（任意）
type ButtonSource struct {
	chip      string
	recordPin int
	quitPin   int
	ledPin    int // 負数ならLEDなし
	debounce  time.Duration

	mu         sync.Mutex
	recordLine *gpiocdev.Line
	quitLine   *gpiocdev.Line
	ledLine    *gpiocdev.Line
	emit       func(Command)
	started    bool

	recordDebounce debouncer
	quitDebounce   debouncer
}

// NewButtonSource はGPIO設備の能力検出を行い、利用可能なら作成する
// チップが開けない環境（GPIO非搭載など）ではエラーを返すが、
// 呼び出し側はこれを能力の欠如として扱い、キーボードのみで継続する
func NewButtonSource(chip string, recordPin, quitPin, ledPin int, debounce time.Duration) (*ButtonSource, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("GPIOチップ %s が利用できません: %w", chip, err)
	}
	_ = c.Close()

	return &ButtonSource{
		chip:           chip,
		recordPin:      recordPin,
		quitPin:        quitPin,
		ledPin:         ledPin,
		debounce:       debounce,
		recordDebounce: debouncer{interval: debounce},
		quitDebounce:   debouncer{interval: debounce},
	}, nil
}

// Name はソースの表示名を返す
func (b *ButtonSource) Name() string {
	return "gpio_buttons"
}

// Start はボタンラインのエッジ監視を開始する
func (b *ButtonSource) Start(_ context.Context, emit func(Command)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	b.emit = emit

	recordLine, err := gpiocdev.RequestLine(b.chip, b.recordPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithConsumer("ryogan-record"),
		gpiocdev.WithEventHandler(b.handleRecord))
	if err != nil {
		return fmt.Errorf("録画ボタン (GPIO %d) の取得に失敗: %w", b.recordPin, err)
	}

	quitLine, err := gpiocdev.RequestLine(b.chip, b.quitPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithConsumer("ryogan-quit"),
		gpiocdev.WithEventHandler(b.handleQuit))
	if err != nil {
		_ = recordLine.Close()
		return fmt.Errorf("終了ボタン (GPIO %d) の取得に失敗: %w", b.quitPin, err)
	}

	if b.ledPin >= 0 {
		ledLine, err := gpiocdev.RequestLine(b.chip, b.ledPin,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("ryogan-led"))
		if err != nil {
			// LEDは補助機能のため、取得失敗でもボタンは有効のまま継続する
			log.Printf("LED (GPIO %d) の取得に失敗: %v", b.ledPin, err)
		} else {
			b.ledLine = ledLine
		}
	}

	b.recordLine = recordLine
	b.quitLine = quitLine
	b.started = true
	return nil
}

// handleRecord は録画ボタンのエッジイベントを処理する
func (b *ButtonSource) handleRecord(_ gpiocdev.LineEvent) {
	b.mu.Lock()
	emit := b.emit
	started := b.started
	accepted := b.recordDebounce.Accept(time.Now())
	b.mu.Unlock()

	if started && accepted && emit != nil {
		emit(CommandToggleRecording)
	}
}

// handleQuit は終了ボタンのエッジイベントを処理する
func (b *ButtonSource) handleQuit(_ gpiocdev.LineEvent) {
	b.mu.Lock()
	emit := b.emit
	started := b.started
	accepted := b.quitDebounce.Accept(time.Now())
	b.mu.Unlock()

	if started && accepted && emit != nil {
		emit(CommandQuit)
	}
}

// SetLED は録画状態表示LEDを点灯/消灯する
func (b *ButtonSource) SetLED(on bool) {
	b.mu.Lock()
	led := b.ledLine
	b.mu.Unlock()

	if led == nil {
		return
	}
	value := 0
	if on {
		value = 1
	}
	if err := led.SetValue(value); err != nil {
		log.Printf("LEDの制御に失敗: %v", err)
	}
}

// Stop はコマンドの発行を停止する（冪等）
// ラインの解放はCloseで行う
func (b *ButtonSource) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	b.emit = nil
}

// Close はGPIOラインを解放する（冪等）
// 終了シーケンスの最後に呼ばれる
func (b *ButtonSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ledLine != nil {
		_ = b.ledLine.SetValue(0) // 終了時はLEDを消灯する
		_ = b.ledLine.Close()
		b.ledLine = nil
	}
	if b.recordLine != nil {
		_ = b.recordLine.Close()
		b.recordLine = nil
	}
	if b.quitLine != nil {
		_ = b.quitLine.Close()
		b.quitLine = nil
	}
	return nil
}

// debouncer は一定間隔内に連続したトリガーを1回にまとめる
// 物理ボタンのチャタリングで1回の押下が複数コマンドになるのを防ぐ
type debouncer struct {
	interval time.Duration
	last     time.Time
}

// Accept はトリガーを受理するかを判定する
// 前回の受理からinterval未満のトリガーは拒否される
func (d *debouncer) Accept(now time.Time) bool {
	if !d.last.IsZero() && now.Sub(d.last) < d.interval {
		return false
	}
	d.last = now
	return true
}
