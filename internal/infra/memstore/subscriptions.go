package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"
)

type PushSubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]model.PushSubscription
}

func NewPushSubscriptionStore() *PushSubscriptionStore {
	return &PushSubscriptionStore{subs: map[string]model.PushSubscription{}}
}

func (s *PushSubscriptionStore) Save(ctx context.Context, sub model.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.subs[sub.Endpoint]; ok {
		sub.CreatedAt = prev.CreatedAt
	} else if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *PushSubscriptionStore) ListByRole(ctx context.Context, role model.SubscriberRole) ([]model.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.PushSubscription{}
	for _, sub := range s.subs {
		if role != "" && sub.Role != role {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func (s *PushSubscriptionStore) Delete(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[endpoint]; !ok {
		return repo.ErrNotFound
	}
	delete(s.subs, endpoint)
	return nil
}

type NewsletterStore struct {
	mu     sync.RWMutex
	emails map[string]bool
}

func NewNewsletterStore() *NewsletterStore {
	return &NewsletterStore{emails: map[string]bool{}}
}

func (s *NewsletterStore) Subscribe(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[email] = true
	return nil
}

func (s *NewsletterStore) ListActiveEmails(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []string{}
	for e, active := range s.emails {
		if active {
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out, nil
}
