package catalogserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) http.Handler {
	t.Helper()
	seed, err := LoadSeed("testdata/server.json")
	require.NoError(t, err)
	return NewHandler(NewMemoryStore(seed)).Routes()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHandler_GetProduct(t *testing.T) {
	h := setupHandler(t)

	rr := get(h, "/products/3")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var p Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&p))
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, "Tênis Adidas Duramo Lite 2.0", p.Title)
	assert.Equal(t, 219.9, p.Price)
}

func TestHandler_GetStock(t *testing.T) {
	h := setupHandler(t)

	rr := get(h, "/stock/4")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":4,"amount":1}`, rr.Body.String())
}

func TestHandler_ListProducts(t *testing.T) {
	h := setupHandler(t)

	rr := get(h, "/products")

	require.Equal(t, http.StatusOK, rr.Code)
	var list []Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	assert.Len(t, list, 6)
}

func TestHandler_NotFound(t *testing.T) {
	h := setupHandler(t)

	for _, path := range []string{"/products/42", "/stock/42", "/stock/abc"} {
		rr := get(h, path)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.JSONEq(t, `{}`, rr.Body.String(), path)
	}
}
