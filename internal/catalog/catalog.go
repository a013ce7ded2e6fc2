// Package catalog proxies the upstream monster compendium so the board UI
// can populate its dropdown without talking to the third-party API directly.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/encountergrid/backend/internal/grid"
)

const cacheKey = "monsters"

type Client struct {
	baseURL string
	http    *http.Client
	cache   *gocache.Cache
	log     *zap.Logger
}

// upstream list shape: {"count": n, "results": [{"index", "name", "url"}]}
type listResponse struct {
	Results []struct {
		Index string `json:"index"`
		Name  string `json:"name"`
	} `json:"results"`
}

func New(baseURL string, ttl time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   gocache.New(ttl, 2*ttl),
		log:     log,
	}
}

// Monsters returns the full compendium list, served from cache when fresh.
func (c *Client) Monsters(ctx context.Context) ([]grid.Monster, error) {
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]grid.Monster), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/monsters", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch monsters: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch monsters: upstream status %d", resp.StatusCode)
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("fetch monsters: %w", err)
	}

	monsters := make([]grid.Monster, 0, len(list.Results))
	for _, r := range list.Results {
		monsters = append(monsters, grid.Monster{
			ID:       r.Index,
			Name:     r.Name,
			ImageRef: "/api/images/monsters/" + r.Index + ".png",
		})
	}

	c.cache.Set(cacheKey, monsters, gocache.DefaultExpiration)
	c.log.Info("monster catalog refreshed", zap.Int("count", len(monsters)))
	return monsters, nil
}
