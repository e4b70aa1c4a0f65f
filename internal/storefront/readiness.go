package storefront

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	readyTimeout      = 2 * time.Second
	readyCheckTimeout = 700 * time.Millisecond
)

var readyClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	},
}

// checkCatalogReady asks the catalog's /readyz. Public catalog APIs usually
// have none, so a 404 there falls back to listing products.
func checkCatalogReady(ctx context.Context, baseURL string) error {
	status, err := checkURL(ctx, baseURL+"/readyz")
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		if status, err = checkURL(ctx, baseURL+"/products"); err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("status=%d", status)
	}
	return nil
}

func checkURL(ctx context.Context, url string) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := readyClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
