package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 90 * time.Second

// StatusError carries a non-2xx backend status plus the `detail` string
// FastAPI-style servers put in the error body, when one is present.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Post sends one JSON request to the given endpoint and returns the raw
// response body. The bearer header is set only when a token is given.
func (c *Client) Post(ctx context.Context, endpoint, token string, body any) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Detail: errorDetail(data)}
	}
	return data, nil
}

func errorDetail(data []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Detail)
}

type AnalyzeResponse struct {
	Success   bool   `json:"success"`
	IndexName string `json:"index_name"`
	Summary   string `json:"summary"`
}

// Analyze asks the backend to scrape and index the given URLs. The
// returned index name is what every later ask-cycle targets.
func (c *Client) Analyze(ctx context.Context, token string, urls []string) (AnalyzeResponse, error) {
	body := struct {
		URLs []string `json:"urls"`
	}{URLs: urls}

	data, err := c.Post(ctx, "/analyze", token, body)
	if err != nil {
		return AnalyzeResponse{}, err
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AnalyzeResponse{}, fmt.Errorf("decode analyze response: %w", err)
	}
	if resp.IndexName == "" {
		return AnalyzeResponse{}, fmt.Errorf("analyze succeeded without an index name")
	}
	return resp, nil
}

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

func (c *Client) Login(ctx context.Context, identifier, password string) (AuthResponse, error) {
	body := struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}{Identifier: identifier, Password: password}

	data, err := c.Post(ctx, "/login", "", body)
	if err != nil {
		return AuthResponse{}, err
	}
	var resp AuthResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AuthResponse{}, fmt.Errorf("decode login response: %w", err)
	}
	if resp.Token == "" {
		return AuthResponse{}, fmt.Errorf("login succeeded without a token")
	}
	return resp, nil
}

// Register starts the signup flow; the backend mails an OTP to the
// address and VerifyOTP completes it.
func (c *Client) Register(ctx context.Context, username, email string) (string, error) {
	body := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}{Username: username, Email: email}

	data, err := c.Post(ctx, "/register", "", body)
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode register response: %w", err)
	}
	return resp.Message, nil
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp, password string) (AuthResponse, error) {
	body := struct {
		Email    string `json:"email"`
		OTP      string `json:"otp"`
		Password string `json:"password"`
	}{Email: email, OTP: otp, Password: password}

	data, err := c.Post(ctx, "/verify-otp", "", body)
	if err != nil {
		return AuthResponse{}, err
	}
	var resp AuthResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AuthResponse{}, fmt.Errorf("decode verify response: %w", err)
	}
	return resp, nil
}
