// ============================================================================
// AI Demo Generation Stage - 測試用例生成階段
// ============================================================================
//
// Package: internal/generation
// 文件: stage.go
// 功能: 對已確認的功能點列表併發生成測試用例，匯總質量評估與統計資訊
//
// 併發模型:
//   - 有界 worker 池（1-8），每個功能點一個工作單元，一次 LLM 呼叫
//   - 聚合 goroutine（Run 本身）投遞全部工作後按完成順序收集結果，
//     每收到一個結果就重建部分結果快照並更新進度
//
// 降級語義:
//   - 單個功能點的呼叫/解析失敗按配置重試；重試耗盡後該功能點降級為
//     一條告警，不影響其餘功能點
//   - 只有「沒有任何可處理的功能點」才會使任務 Failed；
//     哪怕所有功能點全部降級，任務仍以部分結果 Completed
//
// 後驗證: 可用步驟不足 2 步、或步驟包含不可執行後台操作的用例被丟棄
// 並記入告警；保留的用例逐一寫入質量評分與問題列表。
//
// ============================================================================

package generation

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
	"github.com/Linn0813/ai-demo-service/internal/quality"
	"github.com/Linn0813/ai-demo-service/internal/taskregistry"
	"github.com/Linn0813/ai-demo-service/pkg/types"
)

var log = slog.Default()

// StageName 生成階段在進度中上報的階段名
const StageName = "generating_test_cases"

// worker 數邊界
const (
	MinWorkers     = 1
	MaxWorkers     = 8
	DefaultWorkers = 4
)

// Stage 生成階段
type Stage struct {
	registry *taskregistry.Registry
	gateway  llm.Gateway
	metrics  *metrics.Collector

	retries int           // 每個功能點在首次呼叫之外的額外嘗試次數
	backoff time.Duration // 重試之間的固定等待
}

// NewStage 建立生成階段；metrics 可為 nil
func NewStage(registry *taskregistry.Registry, gateway llm.Gateway, collector *metrics.Collector, retries int, backoff time.Duration) *Stage {
	if retries < 0 {
		retries = 0
	}
	return &Stage{
		registry: registry,
		gateway:  gateway,
		metrics:  collector,
		retries:  retries,
		backoff:  backoff,
	}
}

// ClampWorkers 將請求的 worker 數收斂到允許範圍，0 取默認值
func ClampWorkers(n int) int {
	switch {
	case n == 0:
		return DefaultWorkers
	case n < MinWorkers:
		return MinWorkers
	case n > MaxWorkers:
		return MaxWorkers
	}
	return n
}

// Run 執行生成任務，設計為在獨立 goroutine 中呼叫。
// points 為已確認的功能點；limit > 0 時只處理前 limit 個
// （確定性截斷，便於重現）。
func (s *Stage) Run(ctx context.Context, taskID types.TaskID, requirementDoc string, points []types.FunctionPoint, maxWorkers, limit int) {
	if err := s.registry.Start(taskID); err != nil {
		log.Error("無法啟動生成任務", "task_id", taskID, "error", err)
		return
	}
	s.metrics.TaskStarted()

	usable := make([]types.FunctionPoint, 0, len(points))
	for _, fp := range points {
		if strings.TrimSpace(fp.Name) != "" {
			usable = append(usable, fp)
		}
	}
	if len(usable) == 0 {
		s.fail(taskID, "没有可处理的功能点")
		return
	}

	totalPoints := len(usable)
	dispatch := usable
	if limit > 0 && limit < len(dispatch) {
		dispatch = dispatch[:limit]
	}

	workers := ClampWorkers(maxWorkers)
	if workers > len(dispatch) {
		workers = len(dispatch)
	}

	_ = s.registry.UpdateProgress(taskID, types.Progress{
		Stage:   StageName,
		Current: 0,
		Total:   len(dispatch),
		Message: "正在生成测试用例...",
	})

	log.Info("生成任務開始",
		"task_id", taskID,
		"function_points", totalPoints,
		"dispatched", len(dispatch),
		"workers", workers)

	startedAt := time.Now()
	p := newPool(workers, len(dispatch), func(j job) unitResult {
		return s.processPoint(ctx, requirementDoc, j.point)
	})
	for _, fp := range dispatch {
		p.submit(job{point: fp})
	}
	p.close()

	agg := types.GenerationResult{
		ByFunctionPoint: make(map[string]types.PointResult, len(dispatch)),
		Meta: types.GenerationMeta{
			TotalFunctionPoints: totalPoints,
			Limit:               limit,
		},
	}
	done := 0
	for res := range p.results() {
		done++
		agg.TestCases = append(agg.TestCases, res.cases...)
		agg.ByFunctionPoint[res.point.Name] = types.PointResult{
			TestCases: res.cases,
			Warnings:  res.warnings,
			Source:    res.source,
		}
		agg.Meta.TotalWarnings += len(res.warnings)
		if !res.failed {
			agg.Meta.ProcessedFunctionPoints++
		}

		finalizeMeta(&agg)
		_ = s.registry.UpdatePartialResult(taskID, snapshotResult(agg))
		_ = s.registry.UpdateProgress(taskID, types.Progress{
			Stage:       StageName,
			Current:     done,
			Total:       len(dispatch),
			Message:     fmt.Sprintf("已完成 %d/%d 个功能点", done, len(dispatch)),
			CurrentItem: res.point.Name,
		})
	}

	finalizeMeta(&agg)
	if err := s.registry.Complete(taskID, snapshotResult(agg)); err != nil {
		log.Error("寫入生成結果失敗", "task_id", taskID, "error", err)
		return
	}
	s.metrics.TaskCompleted()

	log.Info("生成任務完成",
		"task_id", taskID,
		"test_cases", len(agg.TestCases),
		"processed", agg.Meta.ProcessedFunctionPoints,
		"warnings", agg.Meta.TotalWarnings,
		"duration", time.Since(startedAt))
}

func (s *Stage) fail(taskID types.TaskID, msg string) {
	log.Error("生成任務失敗", "task_id", taskID, "reason", msg)
	if err := s.registry.Fail(taskID, msg); err != nil {
		log.Error("寫入失敗狀態失敗", "task_id", taskID, "error", err)
		return
	}
	s.metrics.TaskFailed()
}

// processPoint 處理單個功能點：定位原文、呼叫模型、解析與後驗證。
// 呼叫或解析失敗按配置重試；重試耗盡則降級為告警。
func (s *Stage) processPoint(ctx context.Context, requirementDoc string, point types.FunctionPoint) unitResult {
	source := point.MatchedContent
	if strings.TrimSpace(source) == "" {
		matched := matcher.Match(requirementDoc, []types.FunctionPoint{point})
		source = matched[0].MatchedContent
	}

	prompt := buildGenerationPrompt(point, source)

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 && s.backoff > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.backoff):
			}
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		callStart := time.Now()
		text, err := s.gateway.Generate(ctx, prompt)
		s.metrics.LLMCall(time.Since(callStart), err)
		if err != nil {
			lastErr = err
			log.Warn("功能點生成呼叫失敗",
				"function_point", point.Name,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		cases, perr := parseTestCases(text)
		if perr != nil {
			lastErr = perr
			log.Warn("功能點輸出解析失敗",
				"function_point", point.Name,
				"attempt", attempt+1,
				"error", perr)
			continue
		}

		kept, warnings := s.finishCases(point, cases)
		return unitResult{
			point:    point,
			cases:    kept,
			warnings: warnings,
			source:   source,
		}
	}

	s.metrics.PointDegraded()
	return unitResult{
		point:    point,
		source:   source,
		failed:   true,
		warnings: []string{fmt.Sprintf("功能点 '%s' 生成失败: %v", point.Name, lastErr)},
	}
}

// finishCases 後驗證並補全測試用例：丟棄步驟不可用的用例、
// 填寫 ID / 模塊名 / 優先級 / 質量評估
func (s *Stage) finishCases(point types.FunctionPoint, cases []types.TestCase) ([]types.TestCase, []string) {
	kept := make([]types.TestCase, 0, len(cases))
	var warnings []string
	for _, tc := range cases {
		if len(tc.Steps) < 2 {
			warnings = append(warnings, fmt.Sprintf("用例 '%s' 可用步骤不足2步，已丢弃", displayName(tc)))
			continue
		}
		if banned := firstBannedStep(tc.Steps); banned >= 0 {
			warnings = append(warnings, fmt.Sprintf("用例 '%s' 步骤%d包含不可执行的操作，已丢弃", displayName(tc), banned+1))
			continue
		}

		tc.ID = uuid.NewString()
		if tc.ModuleName == "" {
			tc.ModuleName = point.Name
		}
		if tc.Priority == "" {
			tc.Priority = quality.InferPriority(tc)
		}
		tc.QualityScore, tc.QualityIssues = quality.Assess(tc)
		kept = append(kept, tc)
	}
	return kept, warnings
}

func displayName(tc types.TestCase) string {
	if tc.CaseName != "" {
		return tc.CaseName
	}
	return "(未命名)"
}

func firstBannedStep(steps []string) int {
	for i, step := range steps {
		if quality.ContainsBannedAction(step) {
			return i
		}
	}
	return -1
}

// finalizeMeta 重算依賴全量用例的統計欄位
func finalizeMeta(r *types.GenerationResult) {
	r.Meta.TestCasesWithIssues = 0
	sum := 0.0
	for _, tc := range r.TestCases {
		sum += tc.QualityScore
		if len(tc.QualityIssues) > 0 {
			r.Meta.TestCasesWithIssues++
		}
	}
	if len(r.TestCases) > 0 {
		r.Meta.AverageQualityScore = sum / float64(len(r.TestCases))
	} else {
		r.Meta.AverageQualityScore = 0
	}
}

// snapshotResult 複製聚合結果為此後不再變更的快照值，
// 滿足註冊表對部分結果不可變的約定
func snapshotResult(r types.GenerationResult) *types.GenerationResult {
	out := types.GenerationResult{
		TestCases:       make([]types.TestCase, len(r.TestCases)),
		ByFunctionPoint: make(map[string]types.PointResult, len(r.ByFunctionPoint)),
		Meta:            r.Meta,
	}
	copy(out.TestCases, r.TestCases)
	for name, pr := range r.ByFunctionPoint {
		out.ByFunctionPoint[name] = pr
	}
	return &out
}
