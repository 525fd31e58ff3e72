package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
	"marketplace/internal/variant"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shirt() *domain.Product {
	return &domain.Product{
		ID:     productID,
		ShopID: shopID,
		Name:   "Áo thun",
		Price:  decimal.NewFromInt(150000),
		Variants: variant.Axes{
			{Name: "Size", Values: []variant.Value{{Label: "S"}, {Label: "M"}}},
			{Name: "Color", Values: []variant.Value{{Label: "Red", Color: "#ff0000"}}},
		},
		VariantStock: variant.Stock{"Color:Red,Size:M": 10, "Color:Red,Size:S": 0},
		IsActive:     true,
	}
}

type productBody struct {
	ID           string `json:"id"`
	InStock      bool   `json:"in_stock"`
	Combinations []struct {
		Key       string `json:"key"`
		Label     string `json:"label"`
		Available int    `json:"available"`
	} `json:"combinations"`
}

func TestGetProduct_ReportsAvailabilityPerCombination(t *testing.T) {
	products := &stubProductService{
		get: func(id uuid.UUID) (*domain.Product, error) { return shirt(), nil },
	}
	r := chi.NewRouter()
	NewProductHandler(products, testLogger()).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/"+productID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body productBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, productID.String(), body.ID)
	assert.True(t, body.InStock)

	available := map[string]int{}
	labels := map[string]string{}
	for _, c := range body.Combinations {
		available[c.Key] = c.Available
		labels[c.Key] = c.Label
	}
	assert.Equal(t, map[string]int{"Color:Red,Size:S": 0, "Color:Red,Size:M": 10}, available)
	assert.Equal(t, "Color: Red, Size: M", labels["Color:Red,Size:M"])
}

func TestGetProduct_SimpleProductHasNoCombinations(t *testing.T) {
	products := &stubProductService{
		get: func(id uuid.UUID) (*domain.Product, error) {
			return &domain.Product{ID: id, Name: "Cốc sứ", Price: decimal.NewFromInt(49000), Stock: 0, IsActive: true}, nil
		},
	}
	r := chi.NewRouter()
	NewProductHandler(products, testLogger()).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/"+uuid.New().String(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body productBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.InStock)
	assert.Empty(t, body.Combinations)
}

func TestGetProduct_Errors(t *testing.T) {
	r := chi.NewRouter()
	NewProductHandler(&stubProductService{}, testLogger()).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/"+uuid.New().String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decodeError(t, w).Code)
}

func TestListShopProducts_ParsesPaging(t *testing.T) {
	var got repository.ProductFilter
	products := &stubProductService{
		listForShop: func(slug string, filter repository.ProductFilter) ([]*domain.Product, int, error) {
			assert.Equal(t, "ao-dep", slug)
			got = filter
			return []*domain.Product{shirt()}, 41, nil
		},
	}
	r := chi.NewRouter()
	NewShopHandler(&stubShopService{}, products, testLogger()).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/shops/ao-dep/products?page=3&page_size=500&q=thun&sort_by=price&sort_order=asc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 3, got.Page)
	assert.Equal(t, "thun", got.Search)
	assert.Equal(t, "price", got.SortBy)
	assert.Equal(t, repository.SortOrderAsc, got.SortOrder)

	var page struct {
		Items    []productBody `json:"items"`
		Total    int           `json:"total"`
		Page     int           `json:"page"`
		PageSize int           `json:"page_size"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Equal(t, 41, page.Total)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)
	require.Len(t, page.Items, 1)
	assert.Len(t, page.Items[0].Combinations, 2)
}
