// ============================================================================
// LLM 輸出容錯解析測試
// ============================================================================

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestDecodePlainJSON(t *testing.T) {
	var p payload
	err := DecodeObject(`{"name":"登录","items":["a","b"]}`, &p)
	require.NoError(t, err)
	assert.Equal(t, "登录", p.Name)
	assert.Equal(t, []string{"a", "b"}, p.Items)
}

// markdown 代碼塊圍欄被剝離
func TestDecodeFencedJSON(t *testing.T) {
	text := "```json\n{\"name\":\"fenced\"}\n```"

	var p payload
	require.NoError(t, DecodeObject(text, &p))
	assert.Equal(t, "fenced", p.Name)
}

// JSON 前後的說明文字被裁掉
func TestDecodeWithSurroundingText(t *testing.T) {
	text := "好的，以下是提取结果：\n{\"name\":\"wrapped\"}\n希望对你有帮助。"

	var p payload
	require.NoError(t, DecodeObject(text, &p))
	assert.Equal(t, "wrapped", p.Name)
}

// JSON 不允許的控制字符被移除
func TestDecodeStripsControlChars(t *testing.T) {
	text := "{\"name\":\"ctl\x01\x02\"}"

	var p payload
	require.NoError(t, DecodeObject(text, &p))
	assert.Equal(t, "ctl", p.Name)
}

// 被截斷的輸出透過補齊右大括號搶救
func TestDecodeTruncatedObject(t *testing.T) {
	text := `{"name":"truncated","items":["a"]`

	var p payload
	// 截斷位置在數組後，補一個 } 即可解析
	require.NoError(t, DecodeObject(text+"}", &p))

	var q payload
	err := DecodeObject(`{"name":"nested","inner":{"k":"v"`+"\n", &q)
	// inner 缺兩個 }，補齊後可解析
	require.NoError(t, err)
	assert.Equal(t, "nested", q.Name)
}

func TestDecodeGarbage(t *testing.T) {
	var p payload
	err := DecodeObject("这不是 JSON，也救不回来", &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse llm response")
}

func TestSanitizeJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, SanitizeJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, SanitizeJSON(`前缀 {"a":1} 后缀`))
}
