// Package relay holds the bot's use cases: user registration, join-request
// approval, admin broadcast and admin queries. It knows nothing about the
// transport; handlers in internal/telegram translate updates into calls here.
package relay

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ledass/Auto-accepting-repo/internal/audit"
	"github.com/ledass/Auto-accepting-repo/internal/domain"
	"github.com/ledass/Auto-accepting-repo/internal/store"
)

// Approver approves a pending join request.
type Approver interface {
	ApproveJoinRequest(chatID, userID int64) error
}

// Broadcaster runs a fan-out; *broadcast.Engine implements it.
type Broadcaster interface {
	Run(ctx context.Context, p domain.Payload) (domain.Result, error)
}

// Service is constructed once at startup and shared by all handlers.
type Service struct {
	users    store.Repo
	admin    domain.Admin
	engine   Broadcaster
	approver Approver
	audit    *audit.Notifier
	log      *zap.Logger
}

// New creates a Service.
func New(users store.Repo, admin domain.Admin, engine Broadcaster, approver Approver, notifier *audit.Notifier, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		admin:    admin,
		engine:   engine,
		approver: approver,
		audit:    notifier,
		log:      log,
	}
}

// IsAdmin reports whether id is the configured administrator.
func (s *Service) IsAdmin(id domain.UserID) bool { return s.admin.Is(id) }

// Register adds id to the store on first contact. Only a new user is
// audited. A persistence failure is returned; the audit post is best effort.
func (s *Service) Register(ctx context.Context, id domain.UserID) (bool, error) {
	added, err := s.users.Add(ctx, id)
	if err != nil {
		return false, fmt.Errorf("register %d: %w", id, err)
	}
	if added {
		s.log.Info("user registered", zap.Int64("user_id", int64(id)))
		s.audit.Notify(fmt.Sprintf(auditNewUser, id))
	}
	return added, nil
}

// ApproveJoin approves every join request unconditionally.
func (s *Service) ApproveJoin(chatID int64, chatTitle string, userID domain.UserID) error {
	if err := s.approver.ApproveJoinRequest(chatID, int64(userID)); err != nil {
		return fmt.Errorf("approve %d in %d: %w", userID, chatID, err)
	}
	s.log.Info("join request approved", zap.Int64("chat_id", chatID), zap.Int64("user_id", int64(userID)))
	s.audit.Notify(fmt.Sprintf(auditApproved, userID, chatTitle, chatID))
	return nil
}

// PrepareBroadcast authorizes the sender and resolves the payload. It sends
// nothing, so a rejected command has no side effects.
func (s *Service) PrepareBroadcast(sender domain.UserID, replyTo *domain.MessageRef, args string) (domain.Payload, error) {
	if err := s.admin.Authorize(sender); err != nil {
		return domain.Payload{}, err
	}
	return domain.NewPayload(replyTo, args)
}

// Broadcast delivers a prepared payload to every known user and reports the
// tally to the audit channel. A run aborted by a configuration error still
// reports its partial tally.
func (s *Service) Broadcast(ctx context.Context, sender domain.UserID, p domain.Payload) (domain.Result, error) {
	if err := s.admin.Authorize(sender); err != nil {
		return domain.Result{}, err
	}
	res, err := s.engine.Run(ctx, p)
	if errors.Is(err, domain.ErrConfiguration) {
		s.audit.Notify(fmt.Sprintf(auditBroadcastAborted, res.Kind, sender, FormatResult(res)))
	}
	if err != nil {
		return res, err
	}
	s.audit.Notify(fmt.Sprintf(auditBroadcast, res.Kind, sender, FormatResult(res)))
	return res, nil
}

// Stats returns the number of known users.
func (s *Service) Stats(ctx context.Context, sender domain.UserID) (int, error) {
	if err := s.admin.Authorize(sender); err != nil {
		return 0, err
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, err
	}
	s.audit.Notify(fmt.Sprintf(auditStats, sender, n))
	return n, nil
}

// Users returns every known id.
func (s *Service) Users(ctx context.Context, sender domain.UserID) (UsersReport, error) {
	if err := s.admin.Authorize(sender); err != nil {
		return UsersReport{}, err
	}
	ids, err := s.users.All(ctx)
	if err != nil {
		return UsersReport{}, err
	}
	s.audit.Notify(fmt.Sprintf(auditUsers, sender))
	return RenderUsers(ids), nil
}
