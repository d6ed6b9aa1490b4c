// Package review implements the admin console: dashboard, registration lists and
// the approve/reject decision. Every call goes through an authenticated backend
// client that fetches a fresh credential per request.
package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/metrics"
	"github.com/reunite/portal/internal/reconcile"
)

// User-facing verification notices.
const (
	NoticeApproved = "Registration approved."
	NoticeRejected = "Registration rejected."
	NoticeFailed   = "Could not record the decision. Please try again."
)

// ErrMissingID is returned when verifying without a registration id.
var ErrMissingID = errors.New("missing registration id")

// AdminClient is the part of the authenticated backend client the console uses.
type AdminClient interface {
	Get(ctx context.Context, resource string) ([]byte, error)
	Dashboard(ctx context.Context) (*backend.DashboardStats, error)
	Verify(ctx context.Context, registrationID string, approve bool) (*backend.VerifyResult, error)
}

// Service fetches admin data for one request.
type Service struct {
	client      AdminClient
	pendingPath string
}

// New creates a service. pendingPath is the backend list of pending
// registrations; empty means backend.PathPending.
func New(client AdminClient, pendingPath string) *Service {
	if pendingPath == "" {
		pendingPath = backend.PathPending
	}
	return &Service{client: client, pendingPath: pendingPath}
}

// Pending lists registrations awaiting review.
func (s *Service) Pending(ctx context.Context) ([]Registration, error) {
	return s.registrations(ctx, s.pendingPath, "pending")
}

// Rejected lists rejected registrations.
func (s *Service) Rejected(ctx context.Context) ([]Registration, error) {
	return s.registrations(ctx, backend.PathRejected, "rejected")
}

// Approved lists verified persons.
func (s *Service) Approved(ctx context.Context) ([]backend.ApprovedPerson, error) {
	data, err := s.client.Get(ctx, backend.PathApproved)
	if err != nil {
		return nil, err
	}
	list, skipped := reconcile.Decode[backend.ApprovedPerson](data, reconcile.ListShapes("approved")...)
	if skipped > 0 {
		slog.Warn("skipped undecodable approved entries", "skipped", skipped)
	}
	return list, nil
}

func (s *Service) registrations(ctx context.Context, path, key string) ([]Registration, error) {
	data, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	list, skipped := reconcile.Decode[Registration](data, reconcile.ListShapes(key)...)
	if skipped > 0 {
		slog.Warn("skipped undecodable registrations", "list", key, "skipped", skipped)
	}
	return list, nil
}

// Dashboard is the admin landing page data. Either half may be missing.
type Dashboard struct {
	Stats      *backend.DashboardStats
	StatsErr   error
	Pending    []Registration
	PendingErr error
}

// Dashboard fetches the counters and the pending list concurrently.
// A failure of one fetch does not block the other.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	var (
		d  Dashboard
		wg sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.Stats, d.StatsErr = s.client.Dashboard(ctx)
		if d.StatsErr != nil {
			slog.Error("failed to load dashboard stats", "error", d.StatsErr)
		}
	}()
	go func() {
		defer wg.Done()
		d.Pending, d.PendingErr = s.Pending(ctx)
		if d.PendingErr != nil {
			slog.Error("failed to load pending registrations", "error", d.PendingErr)
		}
	}()
	wg.Wait()
	return d
}

// Verify records an approve or reject decision and returns the notice to show
// on the pending list. The caller returns to the pending list either way.
func (s *Service) Verify(ctx context.Context, registrationID string, approve bool) (string, error) {
	decision := "reject"
	if approve {
		decision = "approve"
	}
	if registrationID == "" {
		metrics.Verifications.WithLabelValues(decision, "error").Inc()
		return NoticeFailed, ErrMissingID
	}

	res, err := s.client.Verify(ctx, registrationID, approve)
	metrics.Verifications.WithLabelValues(decision, metrics.Outcome(err)).Inc()
	if err != nil {
		slog.Error("verification failed", "registration_id", registrationID, "approve", approve, "error", err)
		return NoticeFailed, err
	}

	slog.Info("registration verified", "registration_id", registrationID, "status", res.Status, "person_id", res.PersonID)
	if approve {
		return NoticeApproved, nil
	}
	return NoticeRejected, nil
}
