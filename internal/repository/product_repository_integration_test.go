//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"marketplace/internal/domain"
	"marketplace/internal/variant"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestProperty_ProductRoundTripKeepsVariantStock(t *testing.T) {
	shop := seedShop(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("stored products keep axes and per-combination stock", prop.ForAll(
		func(name string, cents int64, small int, medium int) bool {
			axes := variant.Axes{
				{Name: "Size", Values: []variant.Value{{Label: "S"}, {Label: "M"}}},
				{Name: "Màu", Values: []variant.Value{{Label: "Đỏ", Color: "#d00000"}}},
			}
			stock := variant.Reconcile(axes, variant.Stock{
				"Màu:Đỏ,Size:S": small,
				"Size:M,Màu:Đỏ": medium,
			})

			product := seedProduct(t, shop.ID, func(p *domain.Product) {
				p.Name = name
				p.Price = decimal.New(cents, -2)
				p.Images = domain.ImageList{"https://cdn.example.com/" + name + ".jpg"}
				p.Variants = axes
				p.VariantStock = stock
			})

			retrieved, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != name || !retrieved.Price.Equal(product.Price) {
				t.Logf("FAIL: attribute mismatch: %+v", retrieved)
				return false
			}
			if len(retrieved.Variants) != 2 || retrieved.Variants[1].Values[0].Color != "#d00000" {
				t.Logf("FAIL: variants mismatch: %+v", retrieved.Variants)
				return false
			}
			if retrieved.Available("Màu:Đỏ,Size:S") != small || retrieved.Available("Màu:Đỏ,Size:M") != medium {
				t.Logf("FAIL: stock mismatch: %v", retrieved.VariantStock)
				return false
			}

			return repo.Delete(ctx, product.ID) == nil
		},
		gen.RegexMatch(`[A-Za-z0-9]{3,30}`),
		gen.Int64Range(100, 99999999),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_ListByShop(t *testing.T) {
	shop := seedShop(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	seedProduct(t, shop.ID, func(p *domain.Product) { p.Name = "Áo dài lụa"; p.Price = decimal.NewFromInt(900000) })
	seedProduct(t, shop.ID, func(p *domain.Product) { p.Name = "Nón lá"; p.Price = decimal.NewFromInt(80000) })
	seedProduct(t, shop.ID, func(p *domain.Product) { p.Name = "Hidden"; p.IsActive = false })

	products, total, err := repo.ListByShop(ctx, shop.ID, ProductFilter{
		ActiveOnly: true,
		SortBy:     "price",
		SortOrder:  SortOrderAsc,
	})
	if err != nil {
		t.Fatalf("ListByShop failed: %v", err)
	}
	if total != 2 || len(products) != 2 {
		t.Fatalf("expected 2 active products, got %d (total %d)", len(products), total)
	}
	if products[0].Name != "Nón lá" {
		t.Errorf("expected cheapest first, got %s", products[0].Name)
	}

	products, total, err = repo.ListByShop(ctx, shop.ID, ProductFilter{Search: "lụa"})
	if err != nil {
		t.Fatalf("ListByShop search failed: %v", err)
	}
	if total != 1 || products[0].Name != "Áo dài lụa" {
		t.Errorf("unexpected search result: %d products", total)
	}

	if err := repo.Delete(ctx, products[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, products[0].ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound after deletion, got %v", err)
	}
}
