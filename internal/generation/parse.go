package generation

import (
	"errors"
	"strings"

	"github.com/Linn0813/ai-demo-service/internal/llm"
	"github.com/Linn0813/ai-demo-service/pkg/types"
)

// errNoTestCases 模型輸出可解析但不含任何測試用例，視為可重試錯誤
var errNoTestCases = errors.New("llm response contains no test cases")

// rawTestCase 模型輸出中的單個測試用例條目
type rawTestCase struct {
	ModuleName     string   `json:"module_name"`
	SubModule      string   `json:"sub_module"`
	CaseName       string   `json:"case_name"`
	Description    string   `json:"description"`
	Preconditions  string   `json:"preconditions"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	Priority       string   `json:"priority"`
}

// generationPayload 模型輸出的頂層結構
type generationPayload struct {
	TestCases []rawTestCase `json:"test_cases"`
}

// parseTestCases 容錯解析模型輸出為未經後驗證的測試用例列表。
// 解析失敗或列表為空均返回錯誤，由呼叫方決定是否重試。
func parseTestCases(text string) ([]types.TestCase, error) {
	var payload generationPayload
	if err := llm.DecodeObject(text, &payload); err != nil {
		return nil, err
	}
	if len(payload.TestCases) == 0 {
		return nil, errNoTestCases
	}

	cases := make([]types.TestCase, 0, len(payload.TestCases))
	for _, raw := range payload.TestCases {
		steps := make([]string, 0, len(raw.Steps))
		for _, step := range raw.Steps {
			if s := strings.TrimSpace(step); s != "" {
				steps = append(steps, s)
			}
		}
		cases = append(cases, types.TestCase{
			ModuleName:     strings.TrimSpace(raw.ModuleName),
			SubModule:      strings.TrimSpace(raw.SubModule),
			CaseName:       strings.TrimSpace(raw.CaseName),
			Description:    strings.TrimSpace(raw.Description),
			Preconditions:  strings.TrimSpace(raw.Preconditions),
			Steps:          steps,
			ExpectedResult: strings.TrimSpace(raw.ExpectedResult),
			Priority:       normalizePriority(raw.Priority),
		})
	}
	return cases, nil
}

// normalizePriority 校驗模型給出的優先級，無法識別時留空待推斷
func normalizePriority(s string) types.Priority {
	switch types.Priority(strings.ToLower(strings.TrimSpace(s))) {
	case types.PriorityHigh:
		return types.PriorityHigh
	case types.PriorityMedium:
		return types.PriorityMedium
	case types.PriorityLow:
		return types.PriorityLow
	}
	return ""
}
