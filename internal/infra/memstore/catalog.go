package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"
)

// Catalog はDBが無いとき（デモ・テスト）の商品在庫。
// WithinTx の中の変更は fn が成功したときだけ反映する。
type Catalog struct {
	mu          sync.Mutex
	products    map[string]model.Product
	adjustments []model.InventoryAdjustment
}

func NewCatalog(products ...model.Product) *Catalog {
	c := &Catalog{products: map[string]model.Product{}}
	c.Seed(products...)
	return c
}

func (c *Catalog) Seed(products ...model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		c.products[p.ID] = p
	}
}

func (c *Catalog) Product(id string) (model.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) FindByID(ctx context.Context, id string) (model.Product, error) {
	p, ok := c.Product(id)
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (c *Catalog) List(ctx context.Context) ([]model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Catalog) Adjustments() []model.InventoryAdjustment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.InventoryAdjustment, len(c.adjustments))
	copy(out, c.adjustments)
	return out
}

// Txは1本ずつ（FOR UPDATE 相当）
func (c *Catalog) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := &catalogTx{
		parent: c,
		stock:  map[string]int64{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// commit
	for id, stock := range tx.stock {
		p := c.products[id]
		p.Stock = stock
		p.UpdatedAt = time.Now()
		c.products[id] = p
	}
	c.adjustments = append(c.adjustments, tx.adjustments...)
	return nil
}

type catalogTx struct {
	parent      *Catalog
	stock       map[string]int64
	adjustments []model.InventoryAdjustment
}

func (t *catalogTx) Inventory() repo.InventoryRepository { return t }

func (t *catalogTx) FindForUpdate(ctx context.Context, productID string) (model.Product, error) {
	p, ok := t.parent.products[productID]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	if s, staged := t.stock[productID]; staged {
		p.Stock = s
	}
	return p, nil
}

func (t *catalogTx) SetStock(ctx context.Context, productID string, newStock int64) error {
	if _, ok := t.parent.products[productID]; !ok {
		return repo.ErrNotFound
	}
	t.stock[productID] = newStock
	return nil
}

func (t *catalogTx) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	adj.ID = int64(len(t.parent.adjustments) + len(t.adjustments) + 1)
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now()
	}
	t.adjustments = append(t.adjustments, adj)
	return nil
}
