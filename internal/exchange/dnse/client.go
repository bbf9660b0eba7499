// internal/exchange/dnse/client.go
package dnse

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/exchange"
)

// Client는 DNSE 주문 API 클라이언트를 구현합니다
type Client struct {
	apiKey     string
	apiSecret  string
	accountID  string
	baseURL    string
	httpClient *http.Client
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
// 타임아웃된 주문은 REJECTED로 취급됩니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient는 새로운 DNSE API 클라이언트를 생성합니다
func NewClient(apiKey, apiSecret, accountID string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		accountID:  accountID,
		baseURL:    "https://api.dnse.com.vn",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// sign은 요청에 대한 HMAC-SHA256 서명을 생성합니다
func (c *Client) sign(method, endpoint, body string) (signature, timestamp string) {
	timestamp = strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := timestamp + method + endpoint + body

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil)), timestamp
}

// doRequest는 서명된 HTTP 요청을 실행하고 응답 본문을 반환합니다
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("요청 본문 직렬화 실패: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}

	signature, timestamp := c.sign(method, endpoint, string(body))
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("X-SIGNATURE", signature)
	req.Header.Set("X-TIMESTAMP", timestamp)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 타임아웃/전송 오류는 모두 제출 실패로 취급합니다
		if ctx.Err() == context.DeadlineExceeded {
			return nil, exchange.ErrOrderTimeout
		}
		return nil, fmt.Errorf("API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API 에러 응답 (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// orderResponse는 DNSE 주문 API의 응답을 표현합니다
type orderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		OrderID        string  `json:"orderId"`
		Status         string  `json:"status"`
		FilledQuantity int64   `json:"filledQuantity"`
		AvgFilledPrice float64 `json:"avgFilledPrice"`
	} `json:"data"`
}

// PlaceOrder는 주문을 제출합니다
// 거부되거나 전송에 실패하면 에러를 반환하며, 이 경우 주문은 커밋되지 않은 것입니다
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	payload := map[string]interface{}{
		"accountId":     c.accountID,
		"symbol":        req.Symbol,
		"side":          string(req.Side),
		"quantity":      req.Quantity,
		"orderType":     string(req.Type),
		"clientOrderId": clientOrderID,
	}
	if req.Type == domain.Limit {
		payload["price"] = req.Price
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/v1/orders", payload)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("주문 응답 파싱 실패: %w", err)
	}

	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", exchange.ErrOrderRejected, resp.Message)
	}

	now := time.Now()
	return &domain.Order{
		OrderID:        resp.Data.OrderID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          req.Price,
		Type:           req.Type,
		Status:         domain.OrderPending,
		FilledQuantity: resp.Data.FilledQuantity,
		AvgFilledPrice: resp.Data.AvgFilledPrice,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CancelOrder는 주문을 취소합니다
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	respBody, err := c.doRequest(ctx, http.MethodDelete, "/v1/orders/"+orderID, nil)
	if err != nil {
		return err
	}

	var resp orderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("취소 응답 파싱 실패: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("주문 취소 실패: %s", resp.Message)
	}
	return nil
}

// GetOrderStatus는 주문 상태를 조회합니다
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/v1/orders/"+orderID, nil)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("상태 응답 파싱 실패: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("주문 상태 조회 실패: %s", resp.Message)
	}

	return &domain.Order{
		OrderID:        orderID,
		Status:         domain.OrderStatus(resp.Data.Status),
		FilledQuantity: resp.Data.FilledQuantity,
		AvgFilledPrice: resp.Data.AvgFilledPrice,
		UpdatedAt:      time.Now(),
	}, nil
}
