package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"codeworkspace/internal/vfs"
)

const maxResponseBytes = 32 << 20

// response is the JSON body served by Handler and read by HTTPProvider.
type response struct {
	Success  bool        `json:"success"`
	Template []*vfs.Node `json:"template"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPProvider fetches the seed from a remote template endpoint.
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider uses client, or a client with a 10s timeout when nil.
func NewHTTPProvider(url string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{url: url, client: client}
}

func (p *HTTPProvider) Fetch(ctx context.Context) ([]*vfs.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build template request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch template: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", p.url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		var e errorResponse
		_ = json.NewDecoder(body).Decode(&e)
		return nil, fmt.Errorf("template endpoint returned %d: %s", resp.StatusCode, e.Error)
	}
	var ok response
	if err := json.NewDecoder(body).Decode(&ok); err != nil {
		return nil, fmt.Errorf("decode template response: %w", err)
	}
	if !ok.Success {
		return nil, errors.New("template endpoint reported failure")
	}
	if ok.Template == nil {
		ok.Template = []*vfs.Node{}
	}
	return ok.Template, nil
}

// Handler serves p as {"success":true,"template":[...]}. A missing template
// answers 404 and any other failure 500.
func Handler(p Provider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		if p == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Template directory not found"})
			return
		}
		nodes, err := p.Fetch(r.Context())
		switch {
		case errors.Is(err, ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Template directory not found"})
		case err != nil:
			slog.Warn("[WARN-TEMPLATE] reading template failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to read template directory"})
		default:
			if nodes == nil {
				nodes = []*vfs.Node{}
			}
			writeJSON(w, http.StatusOK, response{Success: true, Template: nodes})
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("[DEBUG-TEMPLATE] write response failed", "error", err)
	}
}
