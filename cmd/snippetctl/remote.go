package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	apihttp "github.com/GriffinCanCode/snippetlab/internal/api/http"
	"github.com/GriffinCanCode/snippetlab/internal/catalog"
)

// remote talks to a running snippet server instead of a local tree.
type remote struct {
	client *resty.Client
}

type apiError struct {
	Error string `json:"error"`
}

type listResponse struct {
	Snippets []catalog.Snippet `json:"snippets"`
	Count    int               `json:"count"`
}

func newRemote(baseURL string) *remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("User-Agent", "snippetctl")
	return &remote{client: client}
}

// remoteFor returns a client when --server is set.
func remoteFor(cmd *cobra.Command) (*remote, error) {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return nil, fmt.Errorf("failed to get server flag: %w", err)
	}
	if server == "" {
		return nil, nil
	}
	return newRemote(server), nil
}

func (r *remote) list(ctx context.Context, category string) ([]catalog.Snippet, error) {
	var out listResponse
	req := r.client.R().SetContext(ctx).SetResult(&out).SetError(&apiError{})
	if category != "" {
		req.SetQueryParam("category", category)
	}
	resp, err := req.Get("/snippets")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Snippets, nil
}

func (r *remote) source(ctx context.Context, id string) (string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetError(&apiError{}).
		Get("/snippets/{id}/source")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return string(resp.Body()), nil
}

func (r *remote) evaluate(ctx context.Context, id string) (apihttp.EvaluateResponse, error) {
	var out apihttp.EvaluateResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/snippets/{id}/evaluate")
	if err := check(resp, err); err != nil {
		return out, err
	}
	return out, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status(), e.Error)
		}
		return fmt.Errorf("unexpected response: %s", resp.Status())
	}
	return nil
}
