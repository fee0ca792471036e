package extraction

import (
	"fmt"
	"strings"
)

// extractionPromptTemplate 功能模塊提取提示詞。
// 要求模型只輸出 JSON，並為每個功能點附帶可定位原文的線索欄位。
const extractionPromptTemplate = `你是一名资深测试工程师。请从下面的需求文档中提取出所有独立的功能点。

要求：
1. 每个功能点是一项可以单独测试的功能
2. name 用简短的中文短语概括功能点
3. description 一句话说明该功能点做什么
4. keywords 给出 2-5 个在原文中出现过的关键词
5. exact_phrases 给出 0-3 个原文中逐字出现的短语（用于定位原文位置）
6. section_hint 给出该功能点所在章节的标题（没有明确章节时留空）

只输出 JSON，不要输出任何解释文字，格式如下：
{
  "function_points": [
    {
      "name": "功能点名称",
      "description": "功能点描述",
      "keywords": ["关键词1", "关键词2"],
      "exact_phrases": ["原文短语"],
      "section_hint": "章节标题"
    }
  ]
}

需求文档：
%s`

func buildExtractionPrompt(requirementDoc string) string {
	return fmt.Sprintf(extractionPromptTemplate, strings.TrimSpace(requirementDoc))
}
