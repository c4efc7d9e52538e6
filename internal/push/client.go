package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message - одно multicast-сообщение на все устройства пользователя.
type Message struct {
	Tokens   []string `json:"tokens"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	DeepLink string   `json:"deepLink"`
}

// TokenResult - результат доставки на один токен.
type TokenResult struct {
	Token        string `json:"token"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Unregistered bool   `json:"unregistered,omitempty"`
}

// Response - ответ шлюза по каждому токену.
type Response struct {
	Results []TokenResult `json:"results"`
}

// Failed возвращает неуспешные результаты.
func (r *Response) Failed() []TokenResult {
	var out []TokenResult
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// Unregistered возвращает токены, которые шлюз больше не принимает.
func (r *Response) Unregistered() []string {
	var out []string
	for _, res := range r.Results {
		if res.Unregistered {
			out = append(out, res.Token)
		}
	}
	return out
}

// Client отправляет сообщения в HTTP-шлюз push-уведомлений.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиента шлюза.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendMulticast отправляет сообщение на все токены одним запросом.
func (c *Client) SendMulticast(ctx context.Context, msg Message) (*Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("push: адрес шлюза не задан")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("push: marshal %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/multicast", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("push: build request %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push: send %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("push: шлюз ответил %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("push: decode response %w", err)
	}
	return &out, nil
}
