// ============================================================================
// AI Demo CLI - 命令行入口
// ============================================================================
//
// Package: internal/cli
// 文件: cli.go
// 功能: cobra 命令定義與服務裝配；serve 子命令啟動 HTTP 服務、
//       指標端點與任務清理循環，並處理優雅停機
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Linn0813/ai-demo-service/internal/config"
	"github.com/Linn0813/ai-demo-service/internal/extraction"
	"github.com/Linn0813/ai-demo-service/internal/generation"
	"github.com/Linn0813/ai-demo-service/internal/llm"
	"github.com/Linn0813/ai-demo-service/internal/metrics"
	"github.com/Linn0813/ai-demo-service/internal/server"
	"github.com/Linn0813/ai-demo-service/internal/taskregistry"
)

var log = slog.Default()

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ai-demo-service",
	Short: "基于 LLM 的测试用例生成服务",
	Long:  "从需求文档中提取功能模块，并为确认后的功能点异步生成测试用例。",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（缺省时使用内建默认值）")
	rootCmd.AddCommand(serveCmd)
}

// Execute 執行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	gateway, err := llm.NewOllamaGateway(
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLMTimeout(),
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	registry := taskregistry.NewRegistry()
	ext := extraction.NewStage(registry, gateway, collector)
	gen := generation.NewStage(registry, gateway, collector,
		cfg.Generation.Retries, cfg.GenerationBackoff())

	srv := server.NewServer(registry, ext, gen, collector)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 任務清理循環：定期移除超過保留時長的終止任務
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := registry.CleanupOlderThan(cfg.TaskRetention()); removed > 0 {
					log.Info("清理過期任務", "removed", removed)
				}
			}
		}
	}()

	// 指標端點獨立監聽，避免與業務端口混用
	var metricsSrv *http.Server
	if collector != nil {
		metricsSrv = &http.Server{
			Addr:    cfg.Metrics.Addr,
			Handler: collector.Handler(),
		}
		go func() {
			log.Info("指標端點啟動", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("指標端點異常退出", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP 服務啟動", "addr", cfg.Server.Addr, "model", cfg.LLM.Model)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("收到停止訊號，開始優雅停機")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info("服務已停止")
	return nil
}
