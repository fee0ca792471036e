// ============================================================================
// 集成測試 - 提取到生成的完整流水線
// ============================================================================
//
// 用 stub 網關替代真實推理服務，透過 HTTP 表面走完整條鏈路：
// 提交提取任務 → 輪詢 → 拿到功能點 → 提交生成任務 → 輪詢 → 校驗結果。
//
// ============================================================================

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Linn0813/ai-demo-service/internal/extraction"
	"github.com/Linn0813/ai-demo-service/internal/generation"
	"github.com/Linn0813/ai-demo-service/internal/metrics"
	"github.com/Linn0813/ai-demo-service/internal/server"
	"github.com/Linn0813/ai-demo-service/internal/taskregistry"
	"github.com/Linn0813/ai-demo-service/pkg/types"
)

const requirementDoc = `# 商城小程序需求文档
## 登录
用户输入手机号和验证码完成登录
## 购物车
用户可以把商品加入购物车并修改数量`

// pipelineGateway 按提示詞內容分流：提取提示返回功能點，
// 生成提示返回對應功能點的測試用例
type pipelineGateway struct{}

func (pipelineGateway) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "提取出所有独立的功能点") {
		return `{"function_points":[
			{"name":"登录","keywords":["手机号","验证码"],"exact_phrases":["用户输入手机号和验证码完成登录"]},
			{"name":"购物车","keywords":["购物车","数量"]}
		]}`, nil
	}
	name := "登录"
	if strings.Contains(prompt, "购物车") {
		name = "购物车"
	}
	return fmt.Sprintf(`{"test_cases":[{
		"case_name": "%s主流程校验",
		"steps": ["进入%s相关页面", "按需求文档完成主流程操作", "检查页面展示的结果"],
		"expected_result": "%s主流程按需求文档描述完成且无报错",
		"priority": "high"
	}]}`, name, name, name), nil
}

func newPipelineHandler() http.Handler {
	registry := taskregistry.NewRegistry()
	collector := metrics.NewCollector()
	gateway := pipelineGateway{}
	ext := extraction.NewStage(registry, gateway, collector)
	gen := generation.NewStage(registry, gateway, collector, 1, time.Millisecond)
	return server.NewServer(registry, ext, gen, collector).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// pollTask 輪詢任務直到終止，返回最終快照的 JSON
func pollTask(t *testing.T, handler http.Handler, taskID string) map[string]json.RawMessage {
	t.Helper()
	var snapshot map[string]json.RawMessage
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
		var status string
		require.NoError(t, json.Unmarshal(snapshot["status"], &status))
		return types.TaskStatus(status).IsTerminal()
	}, 3*time.Second, 10*time.Millisecond)
	return snapshot
}

func TestExtractThenGeneratePipeline(t *testing.T) {
	handler := newPipelineHandler()

	// 第一步：提交提取任務
	rec := postJSON(t, handler, "/api/v1/function-modules/extract-async",
		map[string]any{"requirement_doc": requirementDoc})
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	snapshot := pollTask(t, handler, created.TaskID)

	var status string
	require.NoError(t, json.Unmarshal(snapshot["status"], &status))
	require.Equal(t, "completed", status)

	var extractResult types.ExtractionResult
	require.NoError(t, json.Unmarshal(snapshot["result"], &extractResult))
	require.Len(t, extractResult.FunctionPoints, 2)
	assert.Equal(t, types.ConfidenceHigh, extractResult.FunctionPoints[0].MatchConfidence)

	// 第二步：把提取結果作為已確認功能點提交生成任務
	rec = postJSON(t, handler, "/api/v1/test-cases/generate-async",
		map[string]any{
			"requirement_doc":           requirementDoc,
			"confirmed_function_points": extractResult.FunctionPoints,
			"max_workers":               2,
		})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	snapshot = pollTask(t, handler, created.TaskID)
	require.NoError(t, json.Unmarshal(snapshot["status"], &status))
	require.Equal(t, "completed", status)

	var genResult types.GenerationResult
	require.NoError(t, json.Unmarshal(snapshot["result"], &genResult))
	assert.Len(t, genResult.TestCases, 2)
	assert.Equal(t, 2, genResult.Meta.TotalFunctionPoints)
	assert.Equal(t, 2, genResult.Meta.ProcessedFunctionPoints)
	assert.Zero(t, genResult.Meta.TotalWarnings)

	for _, tc := range genResult.TestCases {
		assert.NotEmpty(t, tc.ID)
		assert.GreaterOrEqual(t, tc.QualityScore, 0.5)
	}

	// 每個功能點都有各自的結果分組
	assert.Contains(t, genResult.ByFunctionPoint, "登录")
	assert.Contains(t, genResult.ByFunctionPoint, "购物车")
}
