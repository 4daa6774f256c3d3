// Package camera ステレオカメラペアのデバイス管理を担う
//
// # 責務
// - 2台のV4L2カメラデバイスの排他的な取得と解放
// - ウォームアップ待機を挟んだ順次初期化
// - 左右ペアフレームの同期取得
// - キャプチャのウォッチドッグタイムアウト
//
// # 仕様
// - Device: 1台の物理カメラへの排他アクセスを表すインターフェース
// - V4L2Device: go4vl を使ったV4L2実装（RGB24固定）
// - StereoSource: 2台のDeviceを束ねるステレオソース
// - MockDevice: テスト用のインメモリ実装
// - 同時初期化はデバイスバスの競合を起こすことがあるため、
//   初期化は必ず順次実行し、各デバイスの起動後に待機を入れる
//
// # 前提要件
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
