// Package supabase implements the vehicle store on top of Supabase's
// PostgREST API using the project's service-role credential.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"dealership/internal/config"
	"dealership/internal/patterns"
)

// APIError is a non-2xx PostgREST response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.StatusCode, e.Message)
}

// Client is a thin PostgREST client guarded by a circuit breaker.
type Client struct {
	http    *resty.Client
	breaker *patterns.CircuitBreaker
}

// NewClient creates a PostgREST client for the configured project.
func NewClient(cfg config.SupabaseConfig, logger log.FieldLogger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.URL+"/rest/v1").
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("apikey", cfg.ServiceRoleKey).
		SetAuthToken(cfg.ServiceRoleKey).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		breaker: patterns.NewCircuitBreaker("supabase", logger),
	}
}

// request describes a single PostgREST call.
type request struct {
	method string
	table  string
	query  map[string]string
	prefer string
	body   any
}

// do executes req and decodes a JSON array response into out (if non-nil).
// Server errors count against the circuit breaker; client errors do not.
func (c *Client) do(ctx context.Context, req request, out any) error {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		r := c.http.R().SetContext(ctx).SetQueryParams(req.query)
		if req.prefer != "" {
			r.SetHeader("Prefer", req.prefer)
		}
		if req.body != nil {
			r.SetHeader("Content-Type", "application/json").SetBody(req.body)
		}

		resp, err := r.Execute(req.method, "/"+req.table)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
		}
		return resp, nil
	})
	if err != nil {
		return err
	}

	resp := result.(*resty.Response)
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("supabase: decode %s response: %w", req.table, err)
	}
	return nil
}
