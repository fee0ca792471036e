// ============================================================================
// 功能點原文定位測試
// ============================================================================

package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Linn0813/ai-demo-service/pkg/types"
)

// 精確短語命中：唯一短語出現在第4行 → [4,4]，置信度 high
func TestExactPhraseSingleLine(t *testing.T) {
	doc := strings.Join([]string{
		"# 需求文档",
		"",
		"概述内容",
		"用户点击登录按钮后进入验证流程",
		"其他内容",
	}, "\n")

	points := []types.FunctionPoint{{
		ID:           "fp-1",
		Name:         "登录验证",
		ExactPhrases: []string{"用户点击登录按钮后进入验证流程"},
	}}

	out := Match(doc, points)
	require.Len(t, out, 1)
	assert.Equal(t, types.ConfidenceHigh, out[0].MatchConfidence)
	assert.Equal(t, []int{4, 4}, out[0].MatchedPositions)
	assert.Equal(t, "用户点击登录按钮后进入验证流程", out[0].MatchedContent)
}

// 多個精確短語 → 覆蓋各短語首次出現的最小區間
func TestExactPhrasesCoveringSpan(t *testing.T) {
	doc := strings.Join([]string{
		"第一行",
		"支付流程从这里开始",
		"中间的说明",
		"支付结果在这里展示",
		"最后一行",
	}, "\n")

	points := []types.FunctionPoint{{
		ID:           "fp-1",
		Name:         "支付",
		ExactPhrases: []string{"支付流程从这里开始", "支付结果在这里展示"},
	}}

	out := Match(doc, points)
	assert.Equal(t, types.ConfidenceHigh, out[0].MatchConfidence)
	assert.Equal(t, []int{2, 4}, out[0].MatchedPositions)
}

// 關鍵詞密度達到閾值 → medium；勉強命中 → low
func TestKeywordDensity(t *testing.T) {
	doc := strings.Join([]string{
		"购物车 商品 数量",
		"购物车 结算 金额",
		"",
		"无关内容",
	}, "\n")

	dense := []types.FunctionPoint{{
		ID:       "fp-1",
		Name:     "购物车",
		Keywords: []string{"购物车", "商品", "结算", "金额"},
	}}
	out := Match(doc, dense)
	assert.Equal(t, types.ConfidenceMedium, out[0].MatchConfidence)
	assert.Equal(t, []int{1, 2}, out[0].MatchedPositions)

	sparse := []types.FunctionPoint{{
		ID:       "fp-2",
		Name:     "稀疏",
		Keywords: []string{"无关内容"},
	}}
	out = Match(doc, sparse)
	assert.Equal(t, types.ConfidenceLow, out[0].MatchConfidence)
	assert.Equal(t, []int{4, 4}, out[0].MatchedPositions)
}

// section_hint 是唯一證據 → 標題下的段落，low
func TestSectionHintFallback(t *testing.T) {
	doc := strings.Join([]string{
		"# 总览",
		"总览内容",
		"## 订单管理",
		"订单内容第一行",
		"订单内容第二行",
		"## 其他",
		"其他内容",
	}, "\n")

	points := []types.FunctionPoint{{
		ID:          "fp-1",
		Name:        "订单",
		Keywords:    []string{"不存在的关键词"},
		SectionHint: "订单管理",
	}}

	out := Match(doc, points)
	assert.Equal(t, types.ConfidenceLow, out[0].MatchConfidence)
	assert.Equal(t, []int{3, 5}, out[0].MatchedPositions)
}

// 毫無證據 → 整篇文檔，low，永遠不是錯誤
func TestWholeDocumentFallback(t *testing.T) {
	doc := "第一行\n第二行\n第三行"

	points := []types.FunctionPoint{{ID: "fp-1", Name: "找不到"}}

	out := Match(doc, points)
	assert.Equal(t, types.ConfidenceLow, out[0].MatchConfidence)
	assert.Equal(t, []int{1, 3}, out[0].MatchedPositions)
	assert.Equal(t, doc, out[0].MatchedContent)
}

// 邊界消解：候選 [1,8] 與 [5,12] 重疊 → 靠前者裁剪為 [1,4]
func TestBoundaryResolution(t *testing.T) {
	lines := make([]string, 12)
	for i := range lines {
		lines[i] = "填充行"
	}
	lines[0] = "功能甲的开头"
	lines[7] = "功能甲的结尾"
	lines[4] = "功能乙的开头"
	lines[11] = "功能乙的结尾"
	doc := strings.Join(lines, "\n")

	points := []types.FunctionPoint{
		{
			ID:           "fp-a",
			Name:         "功能甲",
			ExactPhrases: []string{"功能甲的开头", "功能甲的结尾"},
		},
		{
			ID:           "fp-b",
			Name:         "功能乙",
			ExactPhrases: []string{"功能乙的开头", "功能乙的结尾"},
		},
	}

	out := Match(doc, points)
	assert.Equal(t, []int{1, 4}, out[0].MatchedPositions)
	assert.Equal(t, []int{5, 12}, out[1].MatchedPositions)
}

// 裁剪會清空靠前範圍時放棄裁剪，接受重疊
func TestBoundaryResolutionKeepsNonEmpty(t *testing.T) {
	doc := strings.Join([]string{
		"共享的开头行",
		"继续内容",
		"结束",
	}, "\n")

	points := []types.FunctionPoint{
		{ID: "fp-a", Name: "甲", ExactPhrases: []string{"共享的开头行"}},
		{ID: "fp-b", Name: "乙", ExactPhrases: []string{"共享的开头行", "结束"}},
	}

	out := Match(doc, points)
	// 兩者起始行相同，裁剪到 start-1 會清空靠前者，保持原樣
	assert.Equal(t, []int{1, 1}, out[0].MatchedPositions)
	assert.Equal(t, []int{1, 3}, out[1].MatchedPositions)
}

// Rematch 只重算目標功能點，其他功能點的範圍保持不變
func TestRematch(t *testing.T) {
	doc := strings.Join([]string{
		"目标功能的新短语",
		"填充",
		"其他功能占据这里",
		"填充",
	}, "\n")

	other := types.FunctionPoint{
		ID:               "fp-other",
		Name:             "其他功能",
		MatchedPositions: []int{3, 4},
	}
	target := types.FunctionPoint{
		ID:           "fp-target",
		Name:         "目标功能",
		ExactPhrases: []string{"目标功能的新短语"},
	}

	updated := Rematch(doc, target, []types.FunctionPoint{other, target})
	assert.Equal(t, types.ConfidenceHigh, updated.MatchConfidence)
	assert.Equal(t, []int{1, 1}, updated.MatchedPositions)
	assert.Equal(t, "目标功能的新短语", updated.MatchedContent)
}

// Rematch 的目標範圍與靠後的已有範圍重疊時被裁剪
func TestRematchClipsAgainstExisting(t *testing.T) {
	doc := strings.Join([]string{
		"目标的开头",
		"填充",
		"已有功能从这里开始",
		"目标的结尾",
	}, "\n")

	existing := types.FunctionPoint{
		ID:               "fp-existing",
		Name:             "已有功能",
		MatchedPositions: []int{3, 4},
	}
	target := types.FunctionPoint{
		ID:           "fp-target",
		Name:         "目标",
		ExactPhrases: []string{"目标的开头", "目标的结尾"},
	}

	updated := Rematch(doc, target, []types.FunctionPoint{existing})
	assert.Equal(t, []int{1, 2}, updated.MatchedPositions)
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, Lines("a\nb\n"))
	assert.Equal(t, []string{"单行"}, Lines("单行"))
}
