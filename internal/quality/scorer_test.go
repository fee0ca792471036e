// ============================================================================
// 質量評估測試
// ============================================================================

package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Linn0813/ai-demo-service/pkg/types"
)

func TestAssessFullScore(t *testing.T) {
	tc := types.TestCase{
		ModuleName:     "购物车",
		CaseName:       "购物车添加商品数量校验",
		Steps:          []string{"打开商品详情页", "点击加入购物车按钮", "进入购物车页面查看数量"},
		ExpectedResult: "购物车中该商品数量为1，金额与单价一致",
	}

	score, issues := Assess(tc)
	assert.Equal(t, 1.0, score)
	assert.Empty(t, issues)
}

// 多項缺陷疊加扣分，低於 0.5 並帶出對應問題列表
func TestAssessDeductions(t *testing.T) {
	tc := types.TestCase{
		ModuleName:     "",
		CaseName:       "测试",
		Steps:          []string{"点击", "查看结果页面内容"},
		ExpectedResult: "符合预期",
	}

	score, issues := Assess(tc)
	// 模块为空 -0.2，步骤较少 -0.1，通用预期 -0.1，预期过短 -0.1，步骤1过短 -0.05
	assert.InDelta(t, 0.45, score, 1e-9)
	assert.GreaterOrEqual(t, len(issues), 3)
	assert.Contains(t, issues, "功能模块为空")
	assert.Contains(t, issues, "使用了通用预期结果，建议使用具体描述")
}

func TestAssessEmptyCase(t *testing.T) {
	score, issues := Assess(types.TestCase{})
	// 名称 -0.3，模块 -0.2，步骤不足 -0.2，预期为空 -0.3
	assert.InDelta(t, 0.0, score, 1e-9)
	assert.Contains(t, issues, "用例名称为空")
	assert.Contains(t, issues, "预期结果为空")
}

func TestAssessBannedStepAction(t *testing.T) {
	tc := types.TestCase{
		ModuleName:     "活动",
		CaseName:       "活动配置校验",
		Steps:          []string{"登录后台配置活动", "前台查看活动入口展示"},
		ExpectedResult: "活动入口按配置时间展示",
	}

	score, issues := Assess(tc)
	assert.Less(t, score, 1.0)
	assert.Contains(t, issues, "步骤1包含不可执行的操作")
	// 步骤较少的问题同时存在
	assert.Len(t, issues, 2)
}

// 純函數：相同輸入永遠得到相同輸出
func TestAssessDeterministic(t *testing.T) {
	tc := types.TestCase{
		ModuleName:     "登录",
		CaseName:       "登录失败提示",
		Steps:          []string{"输入错误密码", "点击登录按钮"},
		ExpectedResult: "提示密码错误并保留用户名输入",
	}

	s1, i1 := Assess(tc)
	s2, i2 := Assess(tc)
	assert.Equal(t, s1, s2)
	assert.Equal(t, i1, i2)
}

func TestInferPriority(t *testing.T) {
	high := types.TestCase{CaseName: "登录主流程", ExpectedResult: "进入首页"}
	assert.Equal(t, types.PriorityHigh, InferPriority(high))

	low := types.TestCase{CaseName: "数量边界校验", ExpectedResult: "提示超出范围"}
	assert.Equal(t, types.PriorityLow, InferPriority(low))

	medium := types.TestCase{CaseName: "列表翻页", ExpectedResult: "展示下一页数据"}
	assert.Equal(t, types.PriorityMedium, InferPriority(medium))
}

func TestContainsBannedAction(t *testing.T) {
	assert.True(t, ContainsBannedAction("登录后台修改配置"))
	assert.True(t, ContainsBannedAction("查看数据库确认记录"))
	assert.False(t, ContainsBannedAction("在前台页面点击按钮"))
}
