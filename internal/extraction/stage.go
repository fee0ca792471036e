// ============================================================================
// AI Demo Extraction Stage - 功能模塊提取階段
// ============================================================================
//
// Package: internal/extraction
// 文件: stage.go
// 功能: 以單次 LLM 呼叫從需求文檔提取功能點列表，並為每個功能點
//       定位原文範圍，作為後續測試用例生成的輸入
//
// 執行流程:
//   1. Start - 任務轉入 Running
//   2. 單次 LLM 呼叫，提示詞要求 JSON 輸出
//   3. 容錯解析 function_points 數組；缺少可用名稱的條目丟棄並記錄原因，
//      不視為錯誤
//   4. Passage Matcher 對整組功能點定位原文範圍
//   5. Complete - 寫入最終結果
//
// 失敗語義: 提取階段只有一次 LLM 呼叫，呼叫失敗或輸出完全不可解析時
// 任務直接 Failed，不做重試（與生成階段的按功能點重試不同）。
//
// ============================================================================

package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Linn0813/ai-demo-service/internal/llm"
	"github.com/Linn0813/ai-demo-service/internal/matcher"
	"github.com/Linn0813/ai-demo-service/internal/metrics"
	"github.com/Linn0813/ai-demo-service/internal/taskregistry"
	"github.com/Linn0813/ai-demo-service/pkg/types"
)

var log = slog.Default()

// StageName 提取階段在進度中上報的階段名
const StageName = "extracting_modules"

// rawFunctionPoint 模型輸出中的單個功能點條目
type rawFunctionPoint struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	ExactPhrases []string `json:"exact_phrases"`
	SectionHint  string   `json:"section_hint"`
}

// extractionPayload 模型輸出的頂層結構
type extractionPayload struct {
	FunctionPoints []rawFunctionPoint `json:"function_points"`
}

// Stage 提取階段
type Stage struct {
	registry *taskregistry.Registry
	gateway  llm.Gateway
	metrics  *metrics.Collector
}

// NewStage 建立提取階段；metrics 可為 nil
func NewStage(registry *taskregistry.Registry, gateway llm.Gateway, collector *metrics.Collector) *Stage {
	return &Stage{
		registry: registry,
		gateway:  gateway,
		metrics:  collector,
	}
}

// Run 執行提取任務，設計為在獨立 goroutine 中呼叫。
// 任務的終止狀態（Completed/Failed）由本方法保證寫入。
func (s *Stage) Run(ctx context.Context, taskID types.TaskID, requirementDoc string) {
	if err := s.registry.Start(taskID); err != nil {
		log.Error("無法啟動提取任務", "task_id", taskID, "error", err)
		return
	}
	s.metrics.TaskStarted()

	_ = s.registry.UpdateProgress(taskID, types.Progress{
		Stage:   StageName,
		Current: 0,
		Total:   1,
		Message: "正在提取功能模块...",
	})

	log.Info("提取任務開始", "task_id", taskID, "doc_length", len(requirementDoc))

	startedAt := time.Now()
	text, err := s.gateway.Generate(ctx, buildExtractionPrompt(requirementDoc))
	s.metrics.LLMCall(time.Since(startedAt), err)
	if err != nil {
		s.fail(taskID, fmt.Sprintf("提取功能模块失败: %v", err))
		return
	}

	points, skipped, err := parseFunctionPoints(text)
	if err != nil {
		s.fail(taskID, fmt.Sprintf("解析模型输出失败: %v", err))
		return
	}
	if len(points) == 0 {
		s.fail(taskID, "未能从模型输出中解析到任何功能模块")
		return
	}

	matched := matcher.Match(requirementDoc, points)

	_ = s.registry.UpdateProgress(taskID, types.Progress{
		Stage:   StageName,
		Current: 1,
		Total:   1,
		Message: "提取完成",
	})

	result := &types.ExtractionResult{
		FunctionPoints: matched,
		RequirementDoc: requirementDoc,
		Skipped:        skipped,
	}
	if err := s.registry.Complete(taskID, result); err != nil {
		log.Error("寫入提取結果失敗", "task_id", taskID, "error", err)
		return
	}
	s.metrics.TaskCompleted()

	log.Info("提取任務完成",
		"task_id", taskID,
		"function_points", len(matched),
		"skipped", len(skipped),
		"duration", time.Since(startedAt))
}

func (s *Stage) fail(taskID types.TaskID, msg string) {
	log.Error("提取任務失敗", "task_id", taskID, "reason", msg)
	if err := s.registry.Fail(taskID, msg); err != nil {
		log.Error("寫入失敗狀態失敗", "task_id", taskID, "error", err)
		return
	}
	s.metrics.TaskFailed()
}

// parseFunctionPoints 容錯解析模型輸出。
// 缺少可用名稱的條目進入 skipped 列表而非中斷整個任務；
// 只有頂層 JSON 完全不可解析才返回錯誤。
func parseFunctionPoints(text string) ([]types.FunctionPoint, []string, error) {
	var payload extractionPayload
	if err := llm.DecodeObject(text, &payload); err != nil {
		return nil, nil, err
	}

	points := make([]types.FunctionPoint, 0, len(payload.FunctionPoints))
	var skipped []string
	for i, raw := range payload.FunctionPoints {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			skipped = append(skipped, fmt.Sprintf("第%d个条目缺少功能点名称，已丢弃", i+1))
			continue
		}
		points = append(points, types.FunctionPoint{
			ID:           uuid.NewString(),
			Name:         name,
			Description:  strings.TrimSpace(raw.Description),
			Keywords:     raw.Keywords,
			ExactPhrases: raw.ExactPhrases,
			SectionHint:  strings.TrimSpace(raw.SectionHint),
		})
	}
	return points, skipped, nil
}
