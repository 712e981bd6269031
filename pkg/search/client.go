// Package search is a thin delegate to an external full-text index. It
// indexes document metadata as documents are created, replaced, or
// stricken; it does not rank, query, or own any search semantics — those
// live in the external index, out of scope here.
package search

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	appconfig "github.com/districtcms/backend/internal/config"
)

// Client wraps an OpenSearch client bound to one index.
type Client struct {
	raw   *opensearch.Client
	index string
}

// NewClient dials the configured OpenSearch cluster and confirms it's
// reachable before returning.
func NewClient(ctx context.Context, cfg appconfig.SearchConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("search host is required")
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.Host},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: !cfg.UseSSL},
		},
	}
	if cfg.Username != "" {
		osCfg.Username = cfg.Username
		osCfg.Password = cfg.Password
	}

	raw, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	c := &Client{raw: raw, index: cfg.Index}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach search cluster: %w", err)
	}
	return c, nil
}

// Ping confirms the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	req := opensearchapi.InfoRequest{}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return fmt.Errorf("ping request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping failed with status: %s", res.Status())
	}
	return nil
}

// Index returns the configured index name.
func (c *Client) Index() string {
	return c.index
}
