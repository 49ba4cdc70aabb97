package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"feed-import-service/models"
)

// CatalogClient calls the catalog HTTP API that products are imported
// into. It implements repository.CatalogStore.
type CatalogClient struct {
	baseURL string
	client  *http.Client
}

// NewCatalogClient creates a new CatalogClient
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FindBySKU returns the catalog id owning a SKU, or "" when no product
// carries it.
func (cc *CatalogClient) FindBySKU(ctx context.Context, sku string) (string, error) {
	endpoint := cc.baseURL + "/products/lookup?sku=" + url.QueryEscape(sku)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := cc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("catalog lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("catalog lookup returned status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode lookup response: %w", err)
	}
	return out.ID, nil
}

func (cc *CatalogClient) UpsertProduct(ctx context.Context, dto *models.ProductDTO) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := cc.post(ctx, "/products", dto, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (cc *CatalogClient) UpsertVariation(ctx context.Context, parentID string, dto *models.VariationDTO) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := cc.post(ctx, "/products/"+parentID+"/variations", dto, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (cc *CatalogClient) EnsureAttributeTerm(ctx context.Context, taxonomy, slug, displayName string) error {
	payload := map[string]string{
		"taxonomy": taxonomy,
		"slug":     slug,
		"name":     displayName,
	}
	return cc.post(ctx, "/attributes/terms", payload, nil)
}

func (cc *CatalogClient) SyncVariableProduct(ctx context.Context, id string) error {
	return cc.post(ctx, "/products/"+id+"/sync", struct{}{}, nil)
}

func (cc *CatalogClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cc.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("catalog %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
