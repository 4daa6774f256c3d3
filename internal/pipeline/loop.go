package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"ryogan/internal/control"
	"ryogan/internal/frame"
	"ryogan/internal/record"
)

// Source はステレオフレームの供給元
type Source interface {
	// CaptureStereoPair は左右1フレームずつを取得する（ブロッキング）
	CaptureStereoPair(ctx context.Context) (frame.Frame, frame.Frame, error)

	// Close は両デバイスを解放する（冪等）
	Close() error
}

// Display はライブ表示シンク
type Display interface {
	// Write はフレームの生バイト列を転送する
	Write(data []byte) error

	// Close は転送路を解放する（冪等）
	Close() error
}

// Status はループの状態スナップショット（HTTP API用）
type Status struct {
	Recording bool   `json:"recording"`           // 録画中か
	Stopping  bool   `json:"stopping"`            // 停止要求済みか
	Frames    uint64 `json:"frames"`              // 処理済みフレーム数
	Session   string `json:"session,omitempty"`   // 進行中の録画ファイル
}

// Loop はキャプチャループの本体
// メインゴルーチン1本で同期的に実行される
type Loop struct {
	source   Source
	recorder *record.Controller
	display  Display
	state    *control.State
	router   *control.Router

	// ReleaseInput は終了シーケンスの最後に呼ばれる（GPIO解放など、任意）
	ReleaseInput func()

	frames       atomic.Uint64
	displayAlive bool
}

// New は新しいLoopを作成する
func New(source Source, recorder *record.Controller, display Display,
	state *control.State, router *control.Router) *Loop {
	return &Loop{
		source:   source,
		recorder: recorder,
		display:  display,
		state:    state,
		router:   router,
	}
}

// Snapshot は現在の状態を返す
func (l *Loop) Snapshot() Status {
	return Status{
		Recording: l.recorder.IsRecording(),
		Stopping:  l.state.Stopped(),
		Frames:    l.frames.Load(),
		Session:   l.recorder.SessionPath(),
	}
}

// Run はループを実行する
// 停止フラグが立つか、回復不能なキャプチャ/結合エラーで終了する
// どのような経路で終了しても終了シーケンスは必ず実行される
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	l.displayAlive = true

	for {
		// 停止フラグは次のキャプチャの前に必ず確認する
		if l.state.Stopped() || ctx.Err() != nil {
			return nil
		}

		left, right, err := l.source.CaptureStereoPair(ctx)
		if err != nil {
			if l.state.Stopped() || ctx.Err() != nil {
				return nil // 停止中の中断はエラーではない
			}
			return fmt.Errorf("キャプチャ中にエラーが発生しました: %w", err)
		}

		stereo, err := frame.Compose(left, right)
		if err != nil {
			// 解像度はプロセス起動時に固定されるため、ここに来るのは実装誤り
			return fmt.Errorf("フレームの結合に失敗しました: %w", err)
		}

		l.reconcileRecorder(stereo.Width, stereo.Height)

		// 注釈は結合後かつシンク書き込み前に行う
		// 両シンクが同じ注釈済みバッファを観測する
		frame.Annotate(&stereo, l.recorder.IsRecording())
		bgr := stereo.BGR()

		if err := l.recorder.WriteFrame(bgr); err != nil {
			// 連続書き込み失敗の上限超過。セッションを中断してループは継続する
			log.Printf("録画書き込みの失敗が続いたためセッションを中断します: %v", err)
			l.recorder.Abort()
			l.state.SetRecording(false)
		}

		if l.displayAlive {
			if err := l.display.Write(bgr); err != nil {
				// 表示経路のみの致命。録画が進行中なら継続する
				log.Printf("ライブ表示への転送に失敗したため表示を停止します（録画は継続）: %v", err)
				l.displayAlive = false
			}
		}

		l.frames.Add(1)
	}
}

// reconcileRecorder は録画要求と録画コントローラの状態を一致させる
// 録画開始に失敗した場合（ErrSinkOpen）は要求を取り下げ、
// プログラム全体は継続する（録画が始まらないだけ）
func (l *Loop) reconcileRecorder(width, height int) {
	desired := l.state.RecordingRequested()
	actual := l.recorder.IsRecording()

	switch {
	case desired && !actual:
		if err := l.recorder.Start(width, height); err != nil {
			log.Printf("録画を開始できませんでした: %v", err)
			l.state.SetRecording(false)
		}
	case !desired && actual:
		if err := l.recorder.Stop(); err != nil {
			log.Printf("録画の停止中にエラーが発生しました: %v", err)
		}
	}
}

// shutdown は終了シーケンスを実行する
// 順序: リスナー停止 → 録画クローズ → 表示クローズ → カメラ解放 → GPIO解放
func (l *Loop) shutdown() {
	log.Println("終了シーケンスを開始します")

	// 全リスナーへ停止を通知し、終了を待つ
	l.state.RequestStop()
	l.router.Stop()

	// 録画中であればフラッシュして閉じる
	if err := l.recorder.Close(); err != nil {
		log.Printf("録画のクローズに失敗: %v", err)
	}

	if err := l.display.Close(); err != nil {
		log.Printf("表示シンクのクローズに失敗: %v", err)
	}

	if err := l.source.Close(); err != nil {
		log.Printf("カメラの解放に失敗: %v", err)
	}

	if l.ReleaseInput != nil {
		l.ReleaseInput()
	}

	log.Println("終了シーケンスが完了しました")
}
