package control

import "sync"

// Command は入力ソースが発行する論理コマンド
type Command int

// コマンドの定義
// 全ての入力ソース（キーボード・ボタン・HTTP）はこの2つに写像される
const (
	CommandToggleRecording Command = iota + 1 // 録画の開始/停止を切り替える
	CommandQuit                               // プログラムを終了する
)

// String はコマンド名を返す
func (c Command) String() string {
	switch c {
	case CommandToggleRecording:
		return "toggle_recording"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// State はループと入力リスナーが共有する制御状態
// {recording, stop} の2つのフラグだけを持ち、
// 書き込みはコマンド適用経由、読み取りは毎ループ行われる
type State struct {
	mu        sync.Mutex
	recording bool
	stop      bool
}

// NewState は新しいStateを作成する
func NewState() *State {
	return &State{}
}

// Apply はコマンドを状態へ適用する
func (s *State) Apply(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case CommandToggleRecording:
		s.recording = !s.recording
	case CommandQuit:
		s.stop = true
	}
}

// RecordingRequested は録画が要求されているかを返す
func (s *State) RecordingRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// SetRecording は録画要求フラグを直接設定する
// 録画開始に失敗した場合、ループが要求を取り下げるために使う
func (s *State) SetRecording(recording bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = recording
}

// Stopped は停止が要求されているかを返す
func (s *State) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop
}

// RequestStop は停止を要求する
// 停止フラグが唯一のキャンセルシグナルとなる
func (s *State) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop = true
}
