package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Recording RecordingConfig `yaml:"recording"`
	Display   DisplayConfig   `yaml:"display"`
	Control   ControlConfig   `yaml:"control"`
	Server    ServerConfig    `yaml:"server"`
}

// CameraConfig はステレオカメラの設定
// 2台のカメラは同一の解像度・フレームレートで構成される
type CameraConfig struct {
	LeftDevice  string `yaml:"left_device"`  // 左カメラのデバイスパス
	RightDevice string `yaml:"right_device"` // 右カメラのデバイスパス
	Width       int    `yaml:"width"`        // 画像幅
	Height      int    `yaml:"height"`       // 画像高さ
	FPS         int    `yaml:"fps"`          // フレームレート

	WarmupDelay    time.Duration `yaml:"warmup_delay"`    // 初期化後のウォームアップ待機
	CaptureTimeout time.Duration `yaml:"capture_timeout"` // キャプチャのウォッチドッグ（0で無効）
}

// RecordingConfig は録画関連の設定
type RecordingConfig struct {
	Dir              string `yaml:"dir"`                // 録画ファイルの保存先
	Quality          int    `yaml:"quality"`            // 動画品質 (1-5)
	MaxWriteFailures int    `yaml:"max_write_failures"` // 連続書き込み失敗の許容回数
	RetentionDays    int    `yaml:"retention_days"`     // 保持期間（日数、0で無制限）
	MaxTotalMB       int64  `yaml:"max_total_mb"`       // 合計容量の上限（MB、0で無制限）
	FFmpegPath       string `yaml:"ffmpeg_path"`        // ffmpegコマンドのパス
}

// DisplayConfig はライブ表示の設定
type DisplayConfig struct {
	FFplayPath  string `yaml:"ffplay_path"`  // ffplayコマンドのパス
	WindowTitle string `yaml:"window_title"` // ビューアのウィンドウタイトル
}

// ControlConfig は操作入力の設定
type ControlConfig struct {
	GPIOChip     string        `yaml:"gpio_chip"`     // GPIOチップ（例: /dev/gpiochip4）
	RecordPin    int           `yaml:"record_pin"`    // 録画ボタンのGPIO番号
	QuitPin      int           `yaml:"quit_pin"`      // 終了ボタンのGPIO番号
	LEDPin       int           `yaml:"led_pin"`       // 録画表示LEDのGPIO番号（負数で無効）
	Debounce     time.Duration `yaml:"debounce"`      // ボタンのデバウンス間隔
	PollInterval time.Duration `yaml:"poll_interval"` // キーボードのポーリング間隔
}

// ServerConfig はHTTP操作APIの設定
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"` // HTTPサーバーを起動するか
	Host    string `yaml:"host"`    // リッスンするホスト
	Port    int    `yaml:"port"`    // リッスンするポート番号

	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// Load は設定を読み込む
// デフォルト値 ← YAMLファイル（pathが空なら省略）← 環境変数 の順で上書きされる
func Load(path string) (*Config, error) {
	cfg := &Config{
		Camera: CameraConfig{
			LeftDevice:     "/dev/video0",
			RightDevice:    "/dev/video1",
			Width:          640,
			Height:         480,
			FPS:            30,
			WarmupDelay:    2 * time.Second,
			CaptureTimeout: 5 * time.Second,
		},
		Recording: RecordingConfig{
			Dir:              "recordings",
			Quality:          3,
			MaxWriteFailures: 30, // 30fpsで約1秒分
			RetentionDays:    30,
			MaxTotalMB:       0,
			FFmpegPath:       "ffmpeg",
		},
		Display: DisplayConfig{
			FFplayPath:  "ffplay",
			WindowTitle: "Stereo Camera Feed",
		},
		Control: ControlConfig{
			GPIOChip:     "/dev/gpiochip4",
			RecordPin:    17,
			QuitPin:      27,
			LEDPin:       22,
			Debounce:     300 * time.Millisecond,
			PollInterval: 100 * time.Millisecond,
		},
		Server: ServerConfig{
			Enabled:      false,
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}

	// YAMLファイルからの読み込み
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイル %s の読み込みに失敗: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイル %s の解析に失敗: %w", path, err)
		}
	}

	// 環境変数による上書き
	cfg.Camera.LeftDevice = getEnvOrDefault("RYOGAN_LEFT_DEVICE", cfg.Camera.LeftDevice)
	cfg.Camera.RightDevice = getEnvOrDefault("RYOGAN_RIGHT_DEVICE", cfg.Camera.RightDevice)
	cfg.Recording.Dir = getEnvOrDefault("RYOGAN_RECORDINGS_DIR", cfg.Recording.Dir)
	cfg.Server.Port = getEnvAsIntOrDefault("RYOGAN_PORT", cfg.Server.Port)

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Camera.LeftDevice == "" || c.Camera.RightDevice == "" {
		return fmt.Errorf("カメラデバイスが設定されていません")
	}
	if c.Camera.LeftDevice == c.Camera.RightDevice {
		return fmt.Errorf("左右のカメラに同じデバイスは指定できません: %s", c.Camera.LeftDevice)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("無効なフレームレート: %d", c.Camera.FPS)
	}
	if c.Recording.Quality < 1 || c.Recording.Quality > 5 {
		return fmt.Errorf("無効な動画品質: %d (1-5で指定)", c.Recording.Quality)
	}
	if c.Recording.MaxWriteFailures <= 0 {
		return fmt.Errorf("無効な書き込み失敗許容回数: %d", c.Recording.MaxWriteFailures)
	}
	if c.Control.Debounce <= 0 {
		return fmt.Errorf("無効なデバウンス間隔: %s", c.Control.Debounce)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	return nil
}

// ServerAddress はHTTPサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CameraSettings はカメラ1台分の設定値を返す
func (c *Config) CameraSettings() (width, height, fps int) {
	return c.Camera.Width, c.Camera.Height, c.Camera.FPS
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
