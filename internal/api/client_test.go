package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPost_SetsHeadersAndReturnsBody(t *testing.T) {
	var gotAuth, gotContentType, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	data, err := c.Post(context.Background(), "/ask", "tok-123", map[string]string{"question": "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"answer":"ok"}` {
		t.Fatalf("unexpected body: %s", data)
	}
	if gotPath != "/ask" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}
	if gotBody["question"] != "q" {
		t.Fatalf("unexpected request body: %v", gotBody)
	}
}

func TestPost_OmitsAuthHeaderWithoutToken(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	if _, err := c.Post(context.Background(), "/ask", "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawAuth {
		t.Fatalf("auth header must be absent without a token")
	}
}

func TestPost_NonOKStatusCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid API Key."}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Post(context.Background(), "/ask", "bad", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if se.Code != http.StatusUnauthorized || se.Detail != "Invalid API Key." {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			URLs []string `json:"urls"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.URLs) != 2 {
			t.Errorf("expected 2 urls, got %v", body.URLs)
		}
		_, _ = w.Write([]byte(`{"success":true,"index_name":"webindex-ab12cd34","summary":"Two pages about widgets."}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	resp, err := c.Analyze(context.Background(), "", []string{"https://a.example", "https://b.example"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IndexName != "webindex-ab12cd34" {
		t.Fatalf("unexpected index name: %q", resp.IndexName)
	}
	if resp.Summary == "" {
		t.Fatalf("expected summary")
	}
}

func TestAnalyze_MissingIndexNameIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	if _, err := c.Analyze(context.Background(), "", []string{"https://a.example"}); err == nil {
		t.Fatalf("expected error for missing index name")
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Identifier != "sam" || body.Password != "hunter2" {
			t.Errorf("unexpected login body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"message":"Login successful","token":"jwt-xyz","user":{"username":"sam","email":"sam@example.com"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	resp, err := c.Login(context.Background(), "sam", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token != "jwt-xyz" || resp.User.Email != "sam@example.com" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Login(context.Background(), "sam", "wrong")
	var se *StatusError
	if !errors.As(err, &se) || se.Detail != "Invalid credentials" {
		t.Fatalf("expected credential error, got %v", err)
	}
}
