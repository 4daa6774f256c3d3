// Package pipeline はキャプチャ・結合・配信のメインループを担う
//
// # 責務
// - 毎ティックの処理: キャプチャ → 結合 → 注釈 → 録画 → 表示 → 停止確認
// - 共有ControlStateと録画コントローラの状態の調停
// - 終了シーケンスの実行（順序保証あり）
//
// # 仕様
// - データは1ティックにつき一方向に流れる: カメラ → 結合 → {録画, 表示}
// - 終了シーケンスは必ず次の順で実行される:
//   リスナー停止 → リスナー終了待ち → 録画クローズ（フラッシュ）→
//   表示クローズ → カメラ解放 → GPIO解放
//   この順序により、使用中のリソースが解放されることはなく、
//   録画がフラッシュされないまま残ることもない
// - 表示経路の書き込み失敗は表示のみの致命として扱い、録画は継続する
package pipeline
