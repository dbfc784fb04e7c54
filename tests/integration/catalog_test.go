//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/glowcart/salesagent/internal/catalog"
)

func TestCatalogReloadEndpoint(t *testing.T) {
	env := SetupTestEnv(t)
	token := AdminToken(t, env)

	InsertProduct(t, env, catalog.Product{
		ID:          "prod-serum",
		Name:        "Retinol Night Serum",
		Description: "Anti-aging serum with retinol",
		Category:    "serum",
		Brand:       "The Ordinary",
		Price:       42.50,
		Rating:      4.8,
		StockCount:  8,
		IsActive:    true,
	})

	resp := DoRequest(t, env, "POST", "/api/v1/catalog/reload", nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	if data["products"].(float64) < 1 {
		t.Fatalf("expected at least 1 product after reload, got %v", data["products"])
	}

	if env.Refresher.Index().ByID("prod-serum") == nil {
		t.Fatal("expected reloaded index to contain the new product")
	}
}

func TestRepositorySkipsInactiveAndOutOfStock(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()

	InsertProduct(t, env, catalog.Product{
		ID: "prod-inactive", Name: "Discontinued Cream", Category: "moisturizer",
		Price: 10, Rating: 3.0, StockCount: 5, IsActive: false,
	})
	InsertProduct(t, env, catalog.Product{
		ID: "prod-oos", Name: "Sold Out Mask", Category: "mask",
		Price: 15, Rating: 4.9, StockCount: 0, IsActive: true,
	})

	repo := catalog.NewRepository(env.Pool)
	products, err := repo.GetAllActive(ctx)
	if err != nil {
		t.Fatalf("loading products: %v", err)
	}
	for _, p := range products {
		if p.ID == "prod-inactive" || p.ID == "prod-oos" {
			t.Fatalf("expected %s to be filtered out", p.ID)
		}
	}

	p, err := repo.GetByID(ctx, "prod-inactive")
	if err != nil {
		t.Fatalf("querying inactive product: %v", err)
	}
	if p != nil {
		t.Fatal("expected inactive product lookup to return nil")
	}
}
