// Package control はキーボード・GPIOボタン・HTTPからの操作入力を統合する
//
// # 責務
// - 物理的に異なる入力を2つの論理コマンド（録画切替・終了）へ写像する
// - 共有のControlState（録画フラグ・停止フラグ）の唯一の書き込み経路となる
// - 入力リスナーのライフサイクル管理（開始・停止・終了待ち）
//
// # 仕様
// - KeyboardSource: rawモードの標準入力をpoll(2)で非ブロッキングに監視
// - ButtonSource: GPIOラインのエッジイベント（300msデバウンス付き）
//   GPIO設備が初期化できない環境では単に能力が減るだけで、エラーではない
// - Router: 全ソースを束ね、コマンドを同一のControlStateへ適用する
//   コマンドは冪等なトグル/セットのため、last-writer-winsで問題ない
package control
