package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SanitizeJSON 從模型輸出中搶救出 JSON 對象文本。
// 模型經常在 JSON 前後附帶說明文字、markdown 代碼塊標記，
// 或混入 JSON 不允許的控制字符，這裡按固定順序清理：
//  1. 去掉 ``` 代碼塊圍欄
//  2. 裁剪到最外層 { ... }
//  3. 移除 \n \r \t 之外的控制字符
func SanitizeJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		text = strings.Join(lines, "\n")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		text = text[start : end+1]
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// DecodeObject 容錯解析模型輸出中的 JSON 對象到 v。
// 標準解析失敗後會嘗試補齊缺失的右大括號再解析一次。
func DecodeObject(text string, v any) error {
	cleaned := SanitizeJSON(text)

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	// 被截斷的輸出常見於達到 token 上限：補齊右括號後重試
	missing := strings.Count(cleaned, "{") - strings.Count(cleaned, "}")
	if missing > 0 {
		patched := cleaned + strings.Repeat("}", missing)
		if err := json.Unmarshal([]byte(patched), v); err == nil {
			return nil
		}
	}

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("parse llm response: %w", err)
	}
	return nil
}
