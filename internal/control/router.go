package control

import (
	"context"
	"fmt"
	"log"
)

// Source はコマンドを発生させる入力源
// キーボードは常に利用可能で、GPIOボタンは能力検出に成功した場合のみ存在する
type Source interface {
	// Name はソースの表示名を返す
	Name() string

	// Start はリスナーを開始する。コマンドはemitで通知する
	Start(ctx context.Context, emit func(Command)) error

	// Stop はリスナーを停止し、終了を待つ（冪等）
	Stop()
}

// Router は全ての入力ソースを束ね、コマンドを共有状態へ適用する
type Router struct {
	state   *State
	sources []Source
}

// NewRouter は新しいRouterを作成する
func NewRouter(state *State, sources ...Source) *Router {
	return &Router{
		state:   state,
		sources: sources,
	}
}

// Apply はコマンドを記録して共有状態へ適用する
// 入力リスナーとHTTPサーバーの両方から呼ばれる
func (r *Router) Apply(cmd Command) {
	log.Printf("コマンドを受信しました: %s", cmd)
	r.state.Apply(cmd)
}

// Start は全ソースのリスナーを開始する
func (r *Router) Start(ctx context.Context) error {
	for _, source := range r.sources {
		if err := source.Start(ctx, r.Apply); err != nil {
			r.Stop()
			return fmt.Errorf("入力ソース %s の開始に失敗: %w", source.Name(), err)
		}
		log.Printf("入力ソースを開始しました: %s", source.Name())
	}
	return nil
}

// Stop は全ソースのリスナーを停止し、終了を待つ
func (r *Router) Stop() {
	for _, source := range r.sources {
		source.Stop()
	}
}
