// ============================================================================
// AI Demo HTTP Server - 輪詢式異步 API
// ============================================================================
//
// Package: internal/server
// 文件: server.go
// 功能: 對外暴露提取/生成的異步端點與任務輪詢端點
//
// 邊界約定: 所有輸入校驗（文檔長度、worker 範圍、limit 範圍、
// 功能點名稱非空）都在這一層完成；核心階段假定輸入已合法。
//
// ============================================================================

package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Linn0813/ai-demo-service/internal/extraction"
	"github.com/Linn0813/ai-demo-service/internal/generation"
	"github.com/Linn0813/ai-demo-service/internal/metrics"
	"github.com/Linn0813/ai-demo-service/internal/taskregistry"
)

var log = slog.Default()

// Server HTTP 服務
type Server struct {
	engine     *gin.Engine
	registry   *taskregistry.Registry
	extraction *extraction.Stage
	generation *generation.Stage
	metrics    *metrics.Collector
}

// NewServer 組裝路由；collector 可為 nil
func NewServer(registry *taskregistry.Registry, ext *extraction.Stage, gen *generation.Stage, collector *metrics.Collector) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:     gin.New(),
		registry:   registry,
		extraction: ext,
		generation: gen,
		metrics:    collector,
	}

	s.engine.Use(gin.Recovery())

	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/function-modules/extract-async", s.handleExtractAsync)
		v1.POST("/test-cases/generate-async", s.handleGenerateAsync)
		v1.GET("/tasks/:id", s.handleGetTask)
		v1.POST("/modules/rematch", s.handleRematch)
	}

	return s
}

// Handler 返回底層 http.Handler，供 http.Server 與測試使用
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 在指定地址啟動服務（阻塞）
func (s *Server) Run(addr string) error {
	log.Info("HTTP 服務啟動", "addr", addr)
	return s.engine.Run(addr)
}
