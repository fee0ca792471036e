// Package types 定義了 ai-demo-service 系統中使用的核心領域模型
package types

import (
	"time"
)

// TaskID 任務唯一識別碼
type TaskID string

// TaskKind 任務種類
type TaskKind string

// 定義任務種類常數（wire 字串與前端輪詢約定保持一致）
const (
	KindExtractModules    TaskKind = "extract_function_modules" // 提取功能模塊任務
	KindGenerateTestCases TaskKind = "generate_test_cases"      // 生成測試用例任務
)

// TaskStatus 任務狀態
type TaskStatus string

// 定義任務狀態常數
const (
	StatusPending   TaskStatus = "pending"   // 待處理狀態：任務已建立但尚未開始執行
	StatusRunning   TaskStatus = "running"   // 執行中狀態：任務正在後台 goroutine 中處理
	StatusCompleted TaskStatus = "completed" // 完成狀態：result 已寫入，不再變更
	StatusFailed    TaskStatus = "failed"    // 失敗狀態：error 已寫入，不再變更
)

// IsTerminal 回報狀態是否為終止狀態（completed/failed）
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress 任務進度，只在 Running 期間變更
type Progress struct {
	Stage       string `json:"stage"`                  // 當前階段（extracting_modules / generating_test_cases）
	Current     int    `json:"current"`                // 已完成單元數
	Total       int    `json:"total"`                  // 總單元數
	Percent     int    `json:"percent"`                // 進度百分比 0-100
	Message     string `json:"message"`                // 進度訊息
	CurrentItem string `json:"current_item,omitempty"` // 當前處理中的功能點名稱
}

// Task 任務結構，代表一次後台提取或生成工作
//
// 不變式：
//   - Result 與 Error 永遠不會同時非空
//   - 一旦進入終止狀態，所有欄位不再變更
type Task struct {
	ID   TaskID   `json:"task_id"`
	Kind TaskKind `json:"task_type"`

	Status        TaskStatus `json:"status"`
	Progress      *Progress  `json:"progress,omitempty"`
	PartialResult any        `json:"partial_result,omitempty"` // 執行中的部分結果快照
	Result        any        `json:"result,omitempty"`         // 最終結果，Complete 時寫入一次
	Error         string     `json:"error,omitempty"`          // 失敗原因，Fail 時寫入一次

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MatchConfidence 原文匹配置信度
type MatchConfidence string

const (
	ConfidenceHigh   MatchConfidence = "high"   // 精確短語逐字命中
	ConfidenceMedium MatchConfidence = "medium" // 關鍵詞密度明顯高於閾值
	ConfidenceLow    MatchConfidence = "low"    // 證據薄弱或整篇降級匹配
)

// FunctionPoint 功能點：從需求文檔中提取的一項離散功能，
// 錨定到文檔的某個段落
type FunctionPoint struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	ExactPhrases []string `json:"exact_phrases,omitempty"`
	SectionHint  string   `json:"section_hint,omitempty"`

	// 匹配結果（由 Passage Matcher 填寫）
	MatchedContent   string          `json:"matched_content,omitempty"`
	MatchedPositions []int           `json:"matched_positions,omitempty"` // [start_line, end_line]，1-based 閉區間
	MatchConfidence  MatchConfidence `json:"match_confidence,omitempty"`
}

// Priority 測試用例優先級
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TestCase 測試用例，由 Generation Stage 針對單個功能點生成
type TestCase struct {
	ID             string   `json:"id"`
	ModuleName     string   `json:"module_name"`
	SubModule      string   `json:"sub_module,omitempty"`
	CaseName       string   `json:"case_name"`
	Description    string   `json:"description,omitempty"`
	Preconditions  string   `json:"preconditions,omitempty"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	Priority       Priority `json:"priority,omitempty"`

	// 質量評估結果（生成時同步寫入，之後不再回填）
	QualityScore  float64  `json:"quality_score"`
	QualityIssues []string `json:"quality_issues,omitempty"`
}

// ExtractionResult 提取任務的最終結果
type ExtractionResult struct {
	FunctionPoints []FunctionPoint `json:"function_points"`
	RequirementDoc string          `json:"requirement_doc"`
	Skipped        []string        `json:"skipped,omitempty"` // 被丟棄條目的原因（缺少名稱等）
}

// PointResult 單個功能點的生成結果
type PointResult struct {
	TestCases []TestCase `json:"test_cases"`
	Warnings  []string   `json:"warnings,omitempty"`
	Source    string     `json:"source,omitempty"` // 生成時使用的文檔片段
}

// GenerationMeta 生成任務的統計資訊
type GenerationMeta struct {
	TotalFunctionPoints     int     `json:"total_function_points"`
	ProcessedFunctionPoints int     `json:"processed_function_points"`
	Limit                   int     `json:"limit"`
	TotalWarnings           int     `json:"total_warnings"`
	AverageQualityScore     float64 `json:"average_quality_score"`
	TestCasesWithIssues     int     `json:"test_cases_with_issues"`
}

// GenerationResult 生成任務的最終（或部分）結果
type GenerationResult struct {
	TestCases       []TestCase             `json:"test_cases"`
	ByFunctionPoint map[string]PointResult `json:"by_function_point"`
	Meta            GenerationMeta         `json:"meta"`
}
