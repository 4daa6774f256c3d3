// Package main はryoganステレオカメラシステムのエントリポイントです
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ryogan/internal/camera"
	"ryogan/internal/config"
	"ryogan/internal/control"
	"ryogan/internal/display"
	"ryogan/internal/pipeline"
	"ryogan/internal/record"
	"ryogan/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", "", "設定ファイルのパス (YAML)")
		httpEnable = flag.Bool("http", false, "HTTP操作APIを有効にする")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Ryogan - ステレオカメラシステム")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  ryogan [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		return 0
	}

	// 設定を読み込む
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("設定の読み込みに失敗しました: %v", err)
		return 1
	}
	if *httpEnable {
		cfg.Server.Enabled = true
	}

	// 外部コマンドの事前確認
	if err := record.ValidateFFmpeg(cfg.Recording.FFmpegPath); err != nil {
		log.Printf("ffmpegが利用できません: %v", err)
		return 1
	}
	if err := display.ValidateFFplay(cfg.Display.FFplayPath); err != nil {
		log.Printf("ffplayが利用できません: %v", err)
		return 1
	}

	// 録画保存先を用意する
	if err := os.MkdirAll(cfg.Recording.Dir, 0o755); err != nil {
		log.Printf("録画保存先 %s の作成に失敗しました: %v", cfg.Recording.Dir, err)
		return 1
	}

	ctx := context.Background()

	// 全コンポーネントを先に組み立てる
	// デバイスや端末などの資源取得はHTTPサーバーの起動確定後に行う
	width, height, fps := cfg.CameraSettings()
	settings := camera.Settings{Width: width, Height: height, FPS: fps}
	left := camera.NewV4L2Device(cfg.Camera.LeftDevice, settings, cfg.Camera.CaptureTimeout)
	right := camera.NewV4L2Device(cfg.Camera.RightDevice, settings, cfg.Camera.CaptureTimeout)
	source := camera.NewStereoSource(left, right, cfg.Camera.WarmupDelay)

	displaySink := display.NewFFplaySink(cfg.Display.FFplayPath, cfg.Display.WindowTitle)

	factory := &record.FFmpegFactory{
		FFmpegPath: cfg.Recording.FFmpegPath,
		Quality:    cfg.Recording.Quality,
	}
	recorder := record.New(factory, cfg.Recording.Dir, fps, cfg.Recording.MaxWriteFailures)

	janitor := record.NewJanitor(cfg.Recording.Dir,
		cfg.Recording.RetentionDays, cfg.Recording.MaxTotalMB*1024*1024)
	if err := janitor.Start(); err != nil {
		// 掃除は任意機能なので失敗しても継続する
		log.Printf("録画保存先の掃除を開始できませんでした: %v", err)
	}
	defer janitor.Stop()

	// 入力ソースを組み立てる
	// キーボードは常に有効、GPIOボタンはチップが見つかった場合のみ有効
	state := control.NewState()
	sources := []control.Source{control.NewKeyboardSource(cfg.Control.PollInterval)}

	var buttons *control.ButtonSource
	buttons, err = control.NewButtonSource(cfg.Control.GPIOChip,
		cfg.Control.RecordPin, cfg.Control.QuitPin, cfg.Control.LEDPin,
		cfg.Control.Debounce)
	if err != nil {
		log.Printf("GPIOボタンは利用できません（キーボードのみで継続）: %v", err)
		buttons = nil
	} else {
		sources = append(sources, buttons)
		// 録画状態の変化をLEDへ反映する
		recorder.SetNotify(buttons.SetLED)
	}

	router := control.NewRouter(state, sources...)

	loop := pipeline.New(source, recorder, displaySink, state, router)
	if buttons != nil {
		loop.ReleaseInput = func() {
			if err := buttons.Close(); err != nil {
				log.Printf("GPIOの解放に失敗: %v", err)
			}
		}
	}

	// HTTP操作API（任意機能）
	// リッスンの成否はカメラや端末の取得前に確定させる
	if cfg.Server.Enabled {
		srv := server.New(cfg, router, loop)
		if err := srv.Start(); err != nil {
			log.Printf("HTTPサーバーを起動できませんでした: %v", err)
			return 1
		}
		defer func() {
			if err := srv.Shutdown(); err != nil {
				log.Printf("HTTPサーバーのシャットダウンに失敗: %v", err)
			}
		}()
	}

	// ステレオカメラを初期化する（左→ウォームアップ→右→ウォームアップ）
	log.Printf("カメラを初期化しています: %s, %s (%dx%d @%dfps)",
		cfg.Camera.LeftDevice, cfg.Camera.RightDevice, width, height, fps)
	if err := source.Open(ctx); err != nil {
		log.Printf("カメラの初期化に失敗しました: %v", err)
		return 1
	}

	// ライブ表示を起動する（結合後の解像度: 横2倍）
	if err := displaySink.Open(ctx, width*2, height); err != nil {
		log.Printf("ライブ表示の起動に失敗しました: %v", err)
		if cerr := source.Close(); cerr != nil {
			log.Printf("カメラの解放に失敗: %v", cerr)
		}
		return 1
	}

	if err := router.Start(ctx); err != nil {
		log.Printf("入力リスナーの開始に失敗しました: %v", err)
		if cerr := displaySink.Close(); cerr != nil {
			log.Printf("表示シンクのクローズに失敗: %v", cerr)
		}
		if cerr := source.Close(); cerr != nil {
			log.Printf("カメラの解放に失敗: %v", cerr)
		}
		if buttons != nil {
			if cerr := buttons.Close(); cerr != nil {
				log.Printf("GPIOの解放に失敗: %v", cerr)
			}
		}
		return 1
	}

	// シグナルは終了コマンドと同じ経路で処理する
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("シグナルを受信しました: %v", sig)
		router.Apply(control.CommandQuit)
	}()

	log.Println("ステレオカメラシステムを開始します")
	log.Println("操作: 'r' で録画の開始/停止、'q' で終了")

	if err := loop.Run(ctx); err != nil {
		log.Printf("キャプチャループがエラーで終了しました: %v", err)
		return 1
	}

	log.Println("正常に終了しました")
	return 0
}
