// Package server はHTTP操作APIを提供する
//
// # 責務
// - ヘルスチェックとシステム状態の公開
// - 外部からのコマンド注入（録画トグル・終了）
//
// # 仕様
// - コマンドはキーボード・ボタンと同じ経路（Router）で共有状態へ適用される
// - サーバーは任意機能であり、無効時はプロセスの動作に一切影響しない
// - シャットダウンは5秒のタイムアウト付きでグレースフルに行われる
package server
