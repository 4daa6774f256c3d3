package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ryogan/internal/config"
	"ryogan/internal/control"
	"ryogan/internal/pipeline"
)

// StatusProvider はループの状態スナップショットを提供する
type StatusProvider interface {
	Snapshot() pipeline.Status
}

// Server はHTTP操作APIを管理する構造体
type Server struct {
	config     *config.Config
	router     *control.Router
	status     StatusProvider
	engine     *gin.Engine
	httpServer *http.Server
}

// commandRequest はコマンド注入リクエストのボディ
type commandRequest struct {
	Command string `json:"command" binding:"required"`
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, router *control.Router, status StatusProvider) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config: cfg,
		router: router,
		status: status,
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()
	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", s.handleHealth)

	// APIエンドポイント
	api := s.engine.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/commands", s.handleCommand)
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleStatus はシステム状態取得エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pipeline": s.status.Snapshot(),
		"camera": gin.H{
			"left":   s.config.Camera.LeftDevice,
			"right":  s.config.Camera.RightDevice,
			"width":  s.config.Camera.Width,
			"height": s.config.Camera.Height,
			"fps":    s.config.Camera.FPS,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleCommand はコマンド注入エンドポイント
// キーボード・ボタンと同じ写像で共有状態へ適用される
func (s *Server) handleCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "コマンドが指定されていません",
		})
		return
	}

	cmd, ok := parseCommand(req.Command)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unknown_command",
			"message": fmt.Sprintf("未知のコマンドです: %s", req.Command),
		})
		return
	}

	s.router.Apply(cmd)
	c.JSON(http.StatusAccepted, gin.H{
		"accepted": cmd.String(),
	})
}

// parseCommand はコマンド名を論理コマンドへ写像する
func parseCommand(name string) (control.Command, bool) {
	switch name {
	case "toggle_recording":
		return control.CommandToggleRecording, true
	case "quit":
		return control.CommandQuit, true
	default:
		return 0, false
	}
}

// Start はサーバーを起動する
// リッスンに失敗した場合は即座にエラーを返し、
// 成功した場合はバックグラウンドで配信を続ける
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("HTTPサーバーのリッスンに失敗: %w", err)
	}

	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", listener.Addr())
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTPサーバーが異常終了しました: %v", err)
		}
	}()

	return nil
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("HTTPサーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTPサーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("HTTPサーバーが正常にシャットダウンされました")
	return nil
}
