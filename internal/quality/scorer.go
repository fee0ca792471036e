// ============================================================================
// AI Demo Quality Scorer - 測試用例質量評估
// ============================================================================
//
// Package: internal/quality
// 文件: scorer.go
// 功能: 對單個測試用例做確定性的質量打分與問題標註
//
// 評分規則: 從 1.0 起步，按固定扣分項遞減，最終限制在 [0,1]。
// 這只是建議性評分而非硬性門檻 —— 低分用例照樣返回，
// 由 quality_issues 提示人工複核。
//
// ============================================================================

package quality

import (
	"fmt"
	"strings"

	"github.com/Linn0813/ai-demo-service/pkg/types"
)

// genericExpectedResults 通用化的預期結果措辭，命中即扣分
var genericExpectedResults = []string{
	"正确显示",
	"正常显示",
	"验证通过",
	"符合预期",
	"满足要求",
	"点击关闭直接消失",
}

// bannedStepActions 測試步驟中不可執行的後台/運營動作
var bannedStepActions = []string{
	"登录后台",
	"查看数据库",
	"手动投放",
	"后台操作",
}

// 優先級推斷關鍵詞
var (
	highPriorityKeywords = []string{"核心", "主要", "登录", "支付", "core", "primary", "login", "payment"}
	lowPriorityKeywords  = []string{"边界", "异常", "兼容", "boundary", "exception", "compatibility"}
)

// Assess 評估單個測試用例的質量，返回評分與問題列表。
// 純函數：相同輸入永遠得到相同輸出。
func Assess(tc types.TestCase) (float64, []string) {
	score := 1.0
	var issues []string

	if strings.TrimSpace(tc.CaseName) == "" {
		issues = append(issues, "用例名称为空")
		score -= 0.3
	}

	if strings.TrimSpace(tc.ModuleName) == "" {
		issues = append(issues, "功能模块为空")
		score -= 0.2
	}

	switch n := len(tc.Steps); {
	case n < 2:
		issues = append(issues, fmt.Sprintf("步骤数不足（%d步，建议至少2步）", n))
		score -= 0.2
	case n < 3:
		issues = append(issues, fmt.Sprintf("步骤数较少（%d步，建议至少3步）", n))
		score -= 0.1
	}

	expected := strings.TrimSpace(tc.ExpectedResult)
	if expected == "" {
		issues = append(issues, "预期结果为空")
		score -= 0.3
	} else {
		for _, pattern := range genericExpectedResults {
			if strings.Contains(expected, pattern) {
				issues = append(issues, "使用了通用预期结果，建议使用具体描述")
				score -= 0.1
				break
			}
		}
		if len([]rune(expected)) < 5 {
			issues = append(issues, "预期结果过短，可能不够具体")
			score -= 0.1
		}
	}

	for i, step := range tc.Steps {
		trimmed := strings.TrimSpace(step)
		if len([]rune(trimmed)) < 5 {
			issues = append(issues, fmt.Sprintf("步骤%d描述过短或不清晰", i+1))
			score -= 0.05
		}
		for _, action := range bannedStepActions {
			if strings.Contains(trimmed, action) {
				issues = append(issues, fmt.Sprintf("步骤%d包含不可执行的操作", i+1))
				score -= 0.1
				break
			}
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, issues
}

// ContainsBannedAction 回報文本中是否出現不可執行的後台/運營動作，
// 供生成階段的後驗證丟棄步驟不可執行的用例
func ContainsBannedAction(text string) bool {
	for _, action := range bannedStepActions {
		if strings.Contains(text, action) {
			return true
		}
	}
	return false
}

// InferPriority 根據用例名稱與預期結果中的關鍵詞推斷優先級，
// 用於模型未給出 priority 欄位的用例
func InferPriority(tc types.TestCase) types.Priority {
	text := strings.ToLower(tc.CaseName + " " + tc.ExpectedResult)
	for _, kw := range highPriorityKeywords {
		if strings.Contains(text, kw) {
			return types.PriorityHigh
		}
	}
	for _, kw := range lowPriorityKeywords {
		if strings.Contains(text, kw) {
			return types.PriorityLow
		}
	}
	return types.PriorityMedium
}
