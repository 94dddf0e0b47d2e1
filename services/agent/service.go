package agent

import (
	"context"
	"fmt"
	"log/slog"

	"orderwatch/lib/scrapers/portal"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("orderwatch.services.agent")

// PortalSession is one authenticated visit to the portal. The concrete
// implementation is *portal.Client; the interface exists so the markup
// assumptions behind extraction can be swapped in tests.
type PortalSession interface {
	FetchHiddenFields(ctx context.Context) ([]portal.HiddenField, error)
	Login(ctx context.Context, hidden []portal.HiddenField) (string, error)
	ExtractOrders(ctx context.Context, content string) ([]portal.Order, error)
	Accept(ctx context.Context, order portal.Order) (portal.AcceptanceResult, error)
	Logout(ctx context.Context)
}

// Service drives one full acceptance run.
type Service struct {
	criteria Criteria
	notifier Notifier

	// OpenSession creates the session a run will own. Overridable for
	// tests; the default dials the configured portal.
	OpenSession func(ctx context.Context) (PortalSession, error)
}

func NewService(cfg Config) *Service {
	return &Service{
		criteria: cfg.Search,
		notifier: NewEmailNotifier(cfg.Smtp, cfg.Email),
		OpenSession: func(ctx context.Context) (PortalSession, error) {
			return portal.NewClient(ctx, cfg.Portal)
		},
	}
}

// SetNotifier replaces the outbound notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// RunOnce performs the whole sequence: hidden fields, login, scrape,
// filter, accept each match (notifying after every attempt that
// produced a result), then logout. Bad credentials abort immediately
// with no logout; after a successful login the logout is attempted on
// every exit path.
func (s *Service) RunOnce(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "service:RunOnce")
	defer span.End()

	sess, err := s.OpenSession(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to open portal session")
		return fmt.Errorf("open portal session: %w", err)
	}

	hidden, err := sess.FetchHiddenFields(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch hidden fields")
		return fmt.Errorf("fetch hidden fields: %w", err)
	}
	slog.InfoContext(ctx, "collected hidden fields", "count", len(hidden))

	content, err := sess.Login(ctx, hidden)
	if err != nil {
		// acting without a valid session is meaningless, stop here
		span.SetStatus(codes.Error, "login failed")
		return fmt.Errorf("login: %w", err)
	}
	defer sess.Logout(context.WithoutCancel(ctx))

	orders, err := sess.ExtractOrders(ctx, content)
	if err != nil {
		span.SetStatus(codes.Error, "failed to extract orders")
		return fmt.Errorf("extract orders: %w", err)
	}
	slog.InfoContext(ctx, "orders scraped", "count", len(orders))

	for _, order := range Filter(ctx, orders, s.criteria) {
		result, err := sess.Accept(ctx, order)
		if err != nil {
			// one order failing must not stop the ones after it
			slog.ErrorContext(ctx, "failed to accept order", "work_id", order.WorkID, "err", err)
			continue
		}
		err = s.notifier.Notify(ctx, result.Order, result.StatusCode)
		if err != nil {
			slog.ErrorContext(ctx, "failed to send notification", "work_id", order.WorkID, "err", err)
		}
	}

	return nil
}
