// Package llm 封裝對本地可達推理服務的單一呼叫界面。
//
// 核心只依賴 Gateway 接口：prompt 進、文本出，帶各自的超時。
// 任何非 nil 錯誤、空文本、或無法解析為預期結構的文本，
// 都由呼叫方按所在階段的策略處理（生成階段可重試，提取階段直接失敗）。
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// ErrEmptyResponse 推理服務返回了空文本
var ErrEmptyResponse = errors.New("llm returned empty response")

// Gateway 推理服務的單呼叫界面
type Gateway interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaGateway 透過 Ollama /api/generate 端點訪問本地模型
type OllamaGateway struct {
	client  *api.Client
	model   string
	timeout time.Duration
	options map[string]any
}

// NewOllamaGateway 建立 Ollama 客戶端。
// baseURL 形如 http://127.0.0.1:11434，timeout 為單次呼叫上限。
func NewOllamaGateway(baseURL, model string, timeout time.Duration, temperature float64, maxTokens int) (*OllamaGateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid llm base url %q: %w", baseURL, err)
	}

	options := map[string]any{}
	if temperature > 0 {
		options["temperature"] = temperature
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}

	return &OllamaGateway{
		client:  api.NewClient(u, http.DefaultClient),
		model:   model,
		timeout: timeout,
		options: options,
	}, nil
}

// Generate 發起一次非流式生成呼叫
func (g *OllamaGateway) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	stream := false
	req := &api.GenerateRequest{
		Model:   g.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: g.options,
	}

	var sb strings.Builder
	err := g.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
