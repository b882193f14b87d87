package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"
)

// OrderStore はプロセス内だけの注文ストア（再起動で消える）。
// 他の階層がすべて使えないときの最後の受け皿。
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]model.Order
	nextID int64
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: map[string]model.Order{}}
}

func (s *OrderStore) Name() string  { return "memory" }
func (s *OrderStore) Durable() bool { return false }

func (s *OrderStore) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if err := ctx.Err(); err != nil {
		return model.Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.OrderNumber]; ok {
		return model.Order{}, repo.ErrDuplicateOrderNumber
	}
	s.nextID++
	o := order.Clone()
	o.ID = s.nextID
	s.orders[o.OrderNumber] = o
	return o.Clone(), nil
}

func (s *OrderStore) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderNumber]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// メモリ階層に入った注文のメールアドレス
func (s *OrderStore) ListCustomerEmails(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, o := range s.orders {
		e := strings.TrimSpace(o.CustomerEmail)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Strings(out)
	return out, nil
}
