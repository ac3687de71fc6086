package catalogserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the catalog record as served by GET /products/{id}.
type Product struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

type StockInfo struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Seed is the json-server style database file: {"products": [...], "stock": [...]}.
type Seed struct {
	Products []Product   `json:"products"`
	Stock    []StockInfo `json:"stock"`
}

func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := json.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return s, nil
}

// MemoryStore serves products and stock levels from memory
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]Product
	stock    map[int64]int
}

func NewMemoryStore(seed Seed) *MemoryStore {
	s := &MemoryStore{
		products: make(map[int64]Product, len(seed.Products)),
		stock:    make(map[int64]int, len(seed.Stock)),
	}
	for _, p := range seed.Products {
		s.products[p.ID] = p
	}
	for _, st := range seed.Stock {
		s.stock[st.ID] = st.Amount
	}
	return s
}

func (s *MemoryStore) GetProduct(id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// ListProducts returns every product ordered by id.
func (s *MemoryStore) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) GetStock(id int64) (StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	amount, ok := s.stock[id]
	if !ok {
		return StockInfo{}, ErrProductNotFound
	}
	return StockInfo{ID: id, Amount: amount}, nil
}

// SetStock sets the stock level for a product
func (s *MemoryStore) SetStock(id int64, amount int) error {
	if amount < 0 {
		return fmt.Errorf("stock for product %d cannot be negative", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[id] = amount
	return nil
}
