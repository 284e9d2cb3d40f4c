// Package openai 封装对 OpenAI 兼容 chat-completion 接口的出站调用。
// 所有传输层/解析层的失败在离开本包前都会归类成
// GatewayAPI / GatewayConnection / GatewayConfig 三种错误，原始异常不外漏。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"persona-chat-api/internal/apperr"
)

const (
	completionPath = "/v1/chat/completions"

	DefaultModel       = "gpt-4o-mini"
	DefaultTimeoutSec  = 60
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// Config 网关配置，启动时显式构造并校验一次，不做运行期按 key 查找。
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	TimeoutSec  int
	Temperature float64
	MaxTokens   int
}

// ChatMessage 一条上下文消息（role/content 原样透传）
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client 每个实例持有自己的 http.Client，用完必须 Close 释放连接。
type Client struct {
	cfg  Config
	http *http.Client
}

// New 校验必填项并填默认值。缺 BaseURL/APIKey 直接报 GatewayConfig，
// 不静默降级。
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, apperr.New(apperr.KindGatewayConfig, "openai base_url is not configured")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.New(apperr.KindGatewayConfig, "openai api_key is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}, nil
}

// Close 释放底层连接（每条退出路径都要调到，defer 即可）
func (c *Client) Close() { c.http.CloseIdleConnections() }

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateChatCompletion 单次调用，不做重试（重试/退避是预留扩展点）。
// system prompt 固定排第一条，history 按会话顺序原样追加，不截断不改写，
// 上下文长度由调用方负责控制。
func (c *Client) GenerateChatCompletion(ctx context.Context, systemPrompt string, history []ChatMessage) (string, error) {
	msgs := make([]ChatMessage, 0, len(history)+1)
	msgs = append(msgs, ChatMessage{Role: "system", Content: systemPrompt})
	msgs = append(msgs, history...)

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindGatewayAPI, "marshal completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionPath, bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.KindGatewayAPI, "build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// 连接被拒/DNS/TLS/超时 → GatewayConnection
		return "", apperr.Wrap(apperr.KindGatewayConnection,
			fmt.Sprintf("request to %s failed", c.cfg.BaseURL), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGatewayConnection, "read completion response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 状态码和原始响应只进技术信息（日志），永不透给终端用户
		return "", apperr.Newf(apperr.KindGatewayAPI,
			"completion API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", apperr.Wrap(apperr.KindGatewayAPI, "decode completion response", err)
	}
	if len(out.Choices) == 0 {
		return "", apperr.New(apperr.KindGatewayAPI, "completion response has no choices")
	}
	content := out.Choices[0].Message.Content
	if content == "" {
		return "", apperr.New(apperr.KindGatewayAPI, "completion response has empty content")
	}
	// 原样返回，不 trim 不重编码
	return content, nil
}

// IsGatewayErr 判定是否网关类错误（编排层据此决策，不在此处翻译）
func IsGatewayErr(err error) bool {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Kind {
	case apperr.KindGatewayAPI, apperr.KindGatewayConnection, apperr.KindGatewayConfig:
		return true
	}
	return false
}
