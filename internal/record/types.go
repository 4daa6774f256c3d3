package record

import (
	"errors"
	"time"
)

// エラー種別
// ErrSinkOpen は録画開始の失敗（プログラム全体には非致命的）、
// ErrSinkWrite は連続書き込み失敗の上限超過を表す
var (
	ErrSinkOpen  = errors.New("録画シンクのオープンに失敗しました")
	ErrSinkWrite = errors.New("録画シンクへの書き込みに失敗しました")
)

// State は録画コントローラの状態
type State string

const (
	StateIdle      State = "idle"      // 待機中
	StateRecording State = "recording" // 録画中
)

// Session は進行中の録画セッション
// 寸法とフレームレートは作成時に固定され、セッション中に変化しない
type Session struct {
	ID        string    // セッションの一意識別子
	Path      string    // 出力ファイルパス（タイムスタンプ由来）
	Width     int       // フレーム幅（ステレオフレームと一致）
	Height    int       // フレーム高さ
	FPS       int       // 目標フレームレート
	StartedAt time.Time // 開始時刻
}

// Sink は動画コンテナへのフレーム書き込みを抽象化する
// Closeはフラッシュを保証する（フラッシュされていないコンテナは再生不能）
type Sink interface {
	// Write はBGR24の生フレームを1枚書き込む
	Write(data []byte) error

	// Close はフラッシュしてコンテナを完成させる
	Close() error
}

// SinkFactory はセッションに対応するSinkを開く
type SinkFactory interface {
	Open(session Session) (Sink, error)
}
