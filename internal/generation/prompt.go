package generation

import (
	"fmt"
	"strings"

	"github.com/Linn0813/ai-demo-service/pkg/types"
)

// generationPromptTemplate 測試用例生成提示詞，每個功能點一次呼叫。
// 只把該功能點對應的文檔片段餵給模型，而不是整篇需求文檔。
const generationPromptTemplate = `你是一名资深测试工程师。请针对下面这个功能点编写测试用例。

功能点：%s
功能描述：%s

相关需求原文：
%s

要求：
1. 覆盖正常流程、边界情况和异常情况
2. 每个用例的步骤应当具体、可执行，至少2步
3. 预期结果必须具体，不要写"正确显示"这类空话
4. 步骤中不要出现"登录后台"、"查看数据库"等测试人员无法执行的操作
5. priority 取 high / medium / low 之一

只输出 JSON，不要输出任何解释文字，格式如下：
{
  "test_cases": [
    {
      "module_name": "功能模块",
      "sub_module": "子模块",
      "case_name": "用例名称",
      "description": "用例描述",
      "preconditions": "前置条件",
      "steps": ["步骤1", "步骤2"],
      "expected_result": "预期结果",
      "priority": "high"
    }
  ]
}`

func buildGenerationPrompt(point types.FunctionPoint, source string) string {
	desc := point.Description
	if strings.TrimSpace(desc) == "" {
		desc = point.Name
	}
	return fmt.Sprintf(generationPromptTemplate, point.Name, desc, strings.TrimSpace(source))
}
