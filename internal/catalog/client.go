package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/metrics"
	apperrors "github.com/storefront-labs/storefront-api/pkg/errors"
)

// Client talks to the remote catalog service. Every call is a single attempt
// bounded by the configured timeout; there is no cache and no retry loop.
// Transport failures and non-2xx statuses are normalized into AppError codes
// and never escape as raw faults.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new catalog client
func NewClient(cfg *config.CatalogConfig, logger *logrus.Logger) *Client {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxConnsPerHost:     10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// List fetches a window of products. A limit of 0 fetches the full listing.
func (c *Client) List(ctx context.Context, offset, limit int) ([]Product, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(limit))
	}

	body, status, err := c.doRequest(ctx, "list", http.MethodGet, "/products", params, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apperrors.NewRemoteError(status, "catalog list failed")
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeRemoteError, "failed to parse catalog response", err)
	}
	return products, nil
}

// Get fetches a single product by id. Any non-2xx response means the product
// is not retrievable and maps to NOT_FOUND.
func (c *Client) Get(ctx context.Context, id int) (*Product, error) {
	body, status, err := c.doRequest(ctx, "get", http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "product %d not found", id)
	}

	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeRemoteError, "failed to parse catalog response", err)
	}
	return &product, nil
}

// ListByCategory fetches the products belonging to a category
func (c *Client) ListByCategory(ctx context.Context, categoryID int) ([]Product, error) {
	body, status, err := c.doRequest(ctx, "list_by_category", http.MethodGet, fmt.Sprintf("/categories/%d/products", categoryID), nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apperrors.NewRemoteError(status, "catalog category listing failed")
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeRemoteError, "failed to parse catalog response", err)
	}
	return products, nil
}

// Categories fetches all categories
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	body, status, err := c.doRequest(ctx, "categories", http.MethodGet, "/categories", nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apperrors.NewRemoteError(status, "catalog categories failed")
	}

	var categories []Category
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeRemoteError, "failed to parse catalog response", err)
	}
	return categories, nil
}

// Create submits a new product to the remote catalog
func (c *Client) Create(ctx context.Context, payload *ProductPayload) (*Product, error) {
	body, status, err := c.doRequest(ctx, "create", http.MethodPost, "/products", nil, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, apperrors.NewRemoteError(status, "catalog create failed")
	}

	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeRemoteError, "failed to parse catalog response", err)
	}
	return &product, nil
}

// Update replaces a product on the remote catalog
func (c *Client) Update(ctx context.Context, id int, payload *ProductPayload) (*Product, error) {
	body, status, err := c.doRequest(ctx, "update", http.MethodPut, fmt.Sprintf("/products/%d", id), nil, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "product %d not found", id)
	}
	if status != http.StatusOK {
		return nil, apperrors.NewRemoteError(status, "catalog update failed")
	}

	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeRemoteError, "failed to parse catalog response", err)
	}
	return &product, nil
}

// Delete removes a product from the remote catalog
func (c *Client) Delete(ctx context.Context, id int) error {
	_, status, err := c.doRequest(ctx, "delete", http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "product %d not found", id)
	}
	if status != http.StatusOK {
		return apperrors.NewRemoteError(status, "catalog delete failed")
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, operation, method, path string, params url.Values, body interface{}) ([]byte, int, error) {
	start := time.Now()

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, 0, apperrors.NewAppError(apperrors.CodeInternalError, "failed to marshal request body", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, 0, apperrors.NewAppError(apperrors.CodeInternalError, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	// Propagate trace context to the remote service
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCatalogCall(operation, 0, "transport_failure", time.Since(start))
		c.logger.WithError(err).WithFields(logrus.Fields{
			"operation": operation,
			"url":       reqURL,
		}).Warn("Catalog request failed")
		return nil, 0, apperrors.NewAppError(apperrors.CodeTransportFailure, "catalog service unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordCatalogCall(operation, resp.StatusCode, "transport_failure", time.Since(start))
		return nil, 0, apperrors.NewAppError(apperrors.CodeTransportFailure, "failed to read catalog response", err)
	}

	metrics.RecordCatalogCall(operation, resp.StatusCode, outcomeLabel(resp.StatusCode), time.Since(start))

	return respBody, resp.StatusCode, nil
}

func outcomeLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "remote_error"
	}
}
