package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	repo "github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Audience string

const (
	AudienceNewsletter Audience = "newsletter"
	AudienceCustomers  Audience = "customers"
	AudienceAll        Audience = "all"

	// 運営向け（新規注文・在庫アラート）。外部からは指定できない。
	audienceOperators Audience = "operators"
)

func ParseAudience(s string) (Audience, bool) {
	switch Audience(strings.TrimSpace(s)) {
	case AudienceNewsletter:
		return AudienceNewsletter, true
	case AudienceCustomers:
		return AudienceCustomers, true
	case AudienceAll:
		return AudienceAll, true
	}
	return "", false
}

// 宛先1件。メールかプッシュのどちらか。
type Recipient struct {
	Email string
	Push  *model.PushSubscription
}

// 重複排除のキー（メールは小文字、プッシュはendpoint）
func (r Recipient) Key() string {
	if r.Push != nil {
		return "push:" + r.Push.Endpoint
	}
	return "email:" + strings.ToLower(strings.TrimSpace(r.Email))
}

type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

type DispatchReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
}

type DispatcherDeps struct {
	Push           PushSender
	Email          EmailSender
	Events         EventPublisher
	PushSubs       repo.PushSubscriptionRepository
	Newsletter     repo.NewsletterRepository
	Customers      repo.CustomerDirectory
	OperatorEmails []string
	Timeout        time.Duration
	Concurrency    int
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// NotificationDispatcher は宛先を解決してプッシュ/メールを送る。
// 1件の失敗で残りの配信は止めない。呼び出し元へは失敗をまとめて返すだけ。
type NotificationDispatcher struct {
	push           PushSender
	email          EmailSender
	events         EventPublisher
	pushSubs       repo.PushSubscriptionRepository
	newsletter     repo.NewsletterRepository
	customers      repo.CustomerDirectory
	operatorEmails []string
	timeout        time.Duration
	concurrency    int
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// 1宛先あたりの送信上限（未設定時）
const defaultNotifyTimeout = 10 * time.Second

func NewNotificationDispatcher(d DispatcherDeps) *NotificationDispatcher {
	concurrency := d.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &NotificationDispatcher{
		push:           d.Push,
		email:          d.Email,
		events:         d.Events,
		pushSubs:       d.PushSubs,
		newsletter:     d.Newsletter,
		customers:      d.Customers,
		operatorEmails: d.OperatorEmails,
		timeout:        timeout,
		concurrency:    concurrency,
		logger:         d.Logger,
		metrics:        d.Metrics,
	}
}

// ResolveAudience は購読元ごとの宛先を合わせ、キーで重複を除く。
// 購読元の読み込みに失敗した場合はログだけ残し、取れた分で続ける。
func (d *NotificationDispatcher) ResolveAudience(ctx context.Context, audience Audience) []Recipient {
	var sources [][]Recipient

	switch audience {
	case AudienceNewsletter:
		sources = append(sources, d.newsletterRecipients(ctx))
	case AudienceCustomers:
		sources = append(sources, d.customerRecipients(ctx), d.pushRecipients(ctx, model.SubscriberRoleCustomer))
	case AudienceAll:
		sources = append(sources,
			d.newsletterRecipients(ctx),
			d.customerRecipients(ctx),
			d.pushRecipients(ctx, model.SubscriberRoleCustomer))
	case audienceOperators:
		sources = append(sources, emailRecipients(d.operatorEmails), d.pushRecipients(ctx, model.SubscriberRoleOperator))
	}

	return unionRecipients(sources...)
}

func unionRecipients(sources ...[]Recipient) []Recipient {
	seen := map[string]struct{}{}
	out := []Recipient{}
	for _, src := range sources {
		for _, r := range src {
			if r.Push == nil && strings.TrimSpace(r.Email) == "" {
				continue
			}
			k := r.Key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

func emailRecipients(emails []string) []Recipient {
	out := make([]Recipient, 0, len(emails))
	for _, e := range emails {
		out = append(out, Recipient{Email: e})
	}
	return out
}

func (d *NotificationDispatcher) newsletterRecipients(ctx context.Context) []Recipient {
	if d.newsletter == nil {
		return nil
	}
	emails, err := d.newsletter.ListActiveEmails(ctx)
	if err != nil {
		d.logger.Warn("newsletter audience unavailable", zap.Error(err))
		return nil
	}
	return emailRecipients(emails)
}

func (d *NotificationDispatcher) customerRecipients(ctx context.Context) []Recipient {
	if d.customers == nil {
		return nil
	}
	emails, err := d.customers.ListCustomerEmails(ctx)
	if err != nil {
		d.logger.Warn("customer audience unavailable", zap.Error(err))
		return nil
	}
	return emailRecipients(emails)
}

func (d *NotificationDispatcher) pushRecipients(ctx context.Context, role model.SubscriberRole) []Recipient {
	if d.pushSubs == nil {
		return nil
	}
	subs, err := d.pushSubs.ListByRole(ctx, role)
	if err != nil {
		d.logger.Warn("push audience unavailable", zap.String("role", string(role)), zap.Error(err))
		return nil
	}
	out := make([]Recipient, 0, len(subs))
	for i := range subs {
		sub := subs[i]
		out = append(out, Recipient{Push: &sub})
	}
	return out
}

// Dispatch は宛先ごとに独立して送る（並列数はconcurrencyまで）。
func (d *NotificationDispatcher) Dispatch(ctx context.Context, recipients []Recipient, msg Message) DispatchReport {
	var (
		mu     sync.Mutex
		report DispatchReport
	)

	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)

	for _, r := range recipients {
		if !d.canDeliver(r) {
			continue
		}
		r := r
		mu.Lock()
		report.Attempted++
		mu.Unlock()

		g.Go(func() error {
			delivered, removed := d.deliver(ctx, r, msg)
			mu.Lock()
			defer mu.Unlock()
			if delivered {
				report.Delivered++
			} else {
				report.Failed++
			}
			if removed {
				report.Removed++
			}
			// 失敗は宛先単位で吸収する
			return nil
		})
	}

	_ = g.Wait()
	return report
}

func (d *NotificationDispatcher) canDeliver(r Recipient) bool {
	if r.Push != nil {
		return d.push != nil
	}
	return d.email != nil
}

func (d *NotificationDispatcher) deliver(ctx context.Context, r Recipient, msg Message) (delivered bool, removed bool) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if r.Push != nil {
		err := d.push.Send(ctx, *r.Push, PushPayload{Title: msg.Title, Body: msg.Body, URL: msg.URL})
		if err == nil {
			d.metrics.Notifications.WithLabelValues("push", "delivered").Inc()
			return true, false
		}

		d.metrics.Notifications.WithLabelValues("push", "failed").Inc()
		if errors.Is(err, ErrSubscriptionGone) {
			// 期限切れの購読は消しておく
			if derr := d.pushSubs.Delete(ctx, r.Push.Endpoint); derr != nil && !errors.Is(derr, repo.ErrNotFound) {
				d.logger.Warn("failed to remove gone push subscription", zap.String("endpoint", r.Push.Endpoint), zap.Error(derr))
				return false, false
			}
			d.logger.Info("removed gone push subscription", zap.String("endpoint", r.Push.Endpoint))
			return false, true
		}
		d.logger.Warn("push delivery failed", zap.String("endpoint", r.Push.Endpoint), zap.Error(err))
		return false, false
	}

	body := msg.Body
	if msg.URL != "" {
		body += "\n\n" + msg.URL
	}
	if err := d.email.Send(ctx, EmailMessage{To: r.Email, Subject: msg.Title, Body: body}); err != nil {
		d.metrics.Notifications.WithLabelValues("email", "failed").Inc()
		d.logger.Warn("email delivery failed", zap.String("to", r.Email), zap.Error(err))
		return false, false
	}
	d.metrics.Notifications.WithLabelValues("email", "delivered").Inc()
	return true, false
}

type BroadcastInput struct {
	Audience string
	Title    string
	Body     string
	URL      string
}

// Broadcast は管理画面からの一斉配信。
func (d *NotificationDispatcher) Broadcast(ctx context.Context, in BroadcastInput) (DispatchReport, error) {
	audience, ok := ParseAudience(in.Audience)
	if !ok {
		return DispatchReport{}, NewValidationError("audience", "Audience invalide : newsletter, customers ou all.")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return DispatchReport{}, NewValidationError("title", "Le titre est requis.")
	}
	if strings.TrimSpace(in.Body) == "" {
		return DispatchReport{}, NewValidationError("body", "Le message est requis.")
	}

	recipients := d.ResolveAudience(ctx, audience)
	report := d.Dispatch(ctx, recipients, Message{Title: title, Body: strings.TrimSpace(in.Body), URL: strings.TrimSpace(in.URL)})

	d.logger.Info("broadcast dispatched",
		zap.String("audience", string(audience)),
		zap.Int("attempted", report.Attempted),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
		zap.Int("removed", report.Removed))
	return report, nil
}

// NotifyOrderCreated は運営への通知・顧客への確認メール・イベント発行を行う。
func (d *NotificationDispatcher) NotifyOrderCreated(ctx context.Context, order model.Order) error {
	var errs []error

	ops := d.Dispatch(ctx, d.ResolveAudience(ctx, audienceOperators), Message{
		Title: "Nouvelle commande " + order.OrderNumber,
		Body:  fmt.Sprintf("%s (%s) : %s, livraison %s", order.CustomerName, order.CustomerPhone, formatGNF(order.TotalAmount), order.DeliveryAddress),
		URL:   "/admin/orders/" + order.OrderNumber,
	})
	if ops.Failed > 0 {
		errs = append(errs, fmt.Errorf("%d operator deliveries failed", ops.Failed))
	}

	if order.CustomerEmail != "" && d.email != nil {
		customer := d.Dispatch(ctx, []Recipient{{Email: order.CustomerEmail}}, Message{
			Title: "Confirmation de votre commande " + order.OrderNumber,
			Body: fmt.Sprintf("Bonjour %s,\n\nNous avons bien reçu votre commande %s d'un montant de %s.\nNous vous contacterons au %s pour la livraison.",
				order.CustomerName, order.OrderNumber, formatGNF(order.TotalAmount), order.CustomerPhone),
		})
		if customer.Failed > 0 {
			errs = append(errs, errors.New("customer confirmation failed"))
		}
	}

	if err := d.publish(ctx, OrderEvent{
		Type:        EventOrderCreated,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
	}); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: order %s: %w", ErrNotification, order.OrderNumber, errors.Join(errs...))
	}
	return nil
}

// NotifyLowStock は在庫アラートを運営に送る。
func (d *NotificationDispatcher) NotifyLowStock(ctx context.Context, productName string, stock int64) error {
	var errs []error

	report := d.Dispatch(ctx, d.ResolveAudience(ctx, audienceOperators), Message{
		Title: "Stock faible : " + productName,
		Body:  fmt.Sprintf("Il reste %d unité(s) de %s.", stock, productName),
		URL:   "/admin/products",
	})
	if report.Failed > 0 {
		errs = append(errs, fmt.Errorf("%d operator deliveries failed", report.Failed))
	}

	if err := d.publish(ctx, OrderEvent{Type: EventStockLow, ProductName: productName, Stock: stock}); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: low stock %s: %w", ErrNotification, productName, errors.Join(errs...))
	}
	return nil
}

func (d *NotificationDispatcher) publish(ctx context.Context, ev OrderEvent) error {
	if d.events == nil {
		return nil
	}
	ev.EventID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.events.Publish(ctx, ev); err != nil {
		d.metrics.Notifications.WithLabelValues("event", "failed").Inc()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	d.metrics.Notifications.WithLabelValues("event", "delivered").Inc()
	return nil
}

// 115000 -> "115 000 GNF"
func formatGNF(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(ch)
	}
	out := b.String() + " GNF"
	if neg {
		out = "-" + out
	}
	return out
}
