package mlflow

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

	"github.com/langchou/rentgazer/internal/models"
)

var (
	// ErrModelUnavailable 模型服务不可达或返回非 2xx
	ErrModelUnavailable = errors.New("model serving unavailable")
	// ErrEmptyPrediction 模型没有返回预测值
	ErrEmptyPrediction = errors.New("model returned no prediction")
)

// Client 模型服务（MLflow scoring server）客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient 创建模型服务客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// invocationRequest scoring server 的 dataframe_records 输入格式
type invocationRequest struct {
	DataframeRecords []models.PredictionFeatures `json:"dataframe_records"`
}

// invocationResponse 新版本返回 {"predictions": [...]}
type invocationResponse struct {
	Predictions []float64 `json:"predictions"`
}

// doRequest 执行请求
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RentGazer/1.0")

	return c.httpClient.Do(req)
}

// Predict 对单条特征做价格预测
func (c *Client) Predict(ctx context.Context, features *models.PredictionFeatures) (float64, error) {
	payload, err := json.Marshal(invocationRequest{DataframeRecords: []models.PredictionFeatures{*features}})
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/invocations", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return 0, fmt.Errorf("%w: status=%d body=%s", ErrModelUnavailable, resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("predict failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	predictions, err := decodePredictions(body)
	if err != nil {
		return 0, err
	}
	if len(predictions) == 0 {
		return 0, ErrEmptyPrediction
	}
	return predictions[0], nil
}

// decodePredictions 兼容旧版本直接返回数组的格式
func decodePredictions(body []byte) ([]float64, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []float64
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode predictions: %w", err)
		}
		return list, nil
	}

	var resp invocationResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	return resp.Predictions, nil
}

// Ping 检查模型服务健康状态
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/ping", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status=%d", ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}
