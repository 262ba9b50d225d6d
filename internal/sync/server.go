package sync

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

// Server is a Backend talking to the Solo sync server. The server keeps
// at most 10 dated snapshots per user and prunes the oldest; this
// client only ever asks for "the latest".
type Server struct {
	baseURL  string
	username string
	password string
	httpc    *http.Client
	token    string
}

// NewServer creates a server backend for the given base URL.
func NewServer(baseURL, username, password string) *Server {
	return &Server{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// TestConnection performs a login call and caches the returned bearer
// token for subsequent requests.
func (s *Server) TestConnection(ctx context.Context) error {
	return s.login(ctx)
}

func (s *Server) login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sync: server login: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sync: server login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync: server login: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("sync: server login: decode: %w", err)
	}
	if out.Token == "" {
		return fmt.Errorf("sync: server login: empty token")
	}
	s.token = out.Token
	return nil
}

// Push uploads a new dated snapshot. Retention is the server's problem.
func (s *Server) Push(ctx context.Context, name string, payload []byte) error {
	resp, err := s.do(ctx, http.MethodPost, "/api/data/"+name, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("sync: server push: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Pull fetches the server's current (latest) snapshot.
func (s *Server) Pull(ctx context.Context) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/data/latest", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sync: server pull: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sync: server pull: read: %w", err)
	}
	return data, nil
}

// do sends an authenticated request, logging in first when no token is
// cached and retrying once after a 401 (expired token).
func (s *Server) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if s.token == "" {
		if err := s.login(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := s.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := s.login(ctx); err != nil {
			return nil, err
		}
		return s.send(ctx, method, path, body)
	}
	return resp, nil
}

func (s *Server) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("sync: server request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync: server request: %w", err)
	}
	return resp, nil
}
