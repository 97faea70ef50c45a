// Package client talks to a running predictor over its JSON API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"covertype/internal/features"
	"covertype/internal/storage"
	"covertype/internal/web"

	"github.com/go-resty/resty/v2"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
	Stage   string
}

func (e *APIError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("predictor: %d %s (stage %s)", e.Status, e.Message, e.Stage)
	}
	return fmt.Sprintf("predictor: %d %s", e.Status, e.Message)
}

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: base, rest: r}
}

// Schema fetches the form description.
func (c *Client) Schema(ctx context.Context) (*web.SchemaResponse, error) {
	resp := &web.SchemaResponse{}
	if err := c.get(ctx, "/api/schema", resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Predict submits one input. A failed prediction is returned as an
// *APIError carrying the failing stage.
func (c *Client) Predict(ctx context.Context, in features.Input) (*web.PredictResponse, error) {
	result := &web.PredictResponse{}
	res, err := c.rest.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(result).
		SetError(&web.PredictResponse{}).
		Post(c.base + "/api/predict")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, apiError(res)
	}
	return result, nil
}

// History lists the most recent stored predictions.
func (c *Client) History(ctx context.Context, limit int) ([]storage.Record, error) {
	resp := &web.HistoryResponse{}
	res, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(resp).
		SetError(&web.PredictResponse{}).
		Get(c.base + "/api/history")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, apiError(res)
	}
	return resp.Records, nil
}

// Health fetches the server status.
func (c *Client) Health(ctx context.Context) (*web.HealthResponse, error) {
	resp := &web.HealthResponse{}
	if err := c.get(ctx, "/health", resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	res, err := c.rest.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&web.PredictResponse{}).
		Get(c.base + path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return apiError(res)
	}
	return nil
}

func apiError(res *resty.Response) error {
	e := &APIError{Status: res.StatusCode(), Message: http.StatusText(res.StatusCode())}
	if body, ok := res.Error().(*web.PredictResponse); ok && body.Error != "" {
		e.Message = body.Error
		e.Stage = body.Stage
	} else if text := strings.TrimSpace(res.String()); text != "" {
		e.Message = text
	}
	return e
}
