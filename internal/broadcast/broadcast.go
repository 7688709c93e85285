package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledass/Auto-accepting-repo/internal/domain"
)

// Sender is the minimal transport surface the engine needs.
// telegram.Client implements it.
type Sender interface {
	SendText(chatID int64, text string) error
	CopyMessage(chatID, fromChatID int64, messageID int) error
}

// Lister provides the recipient snapshot.
type Lister interface {
	All(ctx context.Context) ([]domain.UserID, error)
}

// Delivery is the outcome of one attempt.
type Delivery struct {
	UserID domain.UserID
	Err    error
}

// OK reports whether the attempt succeeded.
func (d Delivery) OK() bool { return d.Err == nil }

// Engine replays a single payload to every known user.
type Engine struct {
	users  Lister
	sender Sender
	log    *zap.Logger
}

// New creates a new Engine.
func New(users Lister, sender Sender, log *zap.Logger) *Engine {
	return &Engine{users: users, sender: sender, log: log}
}

// Run takes one snapshot of the users and attempts exactly one delivery per
// id, in order. A failed delivery is counted and the run goes on. A failure
// wrapping domain.ErrConfiguration stops the run; the partial tally is
// returned with the error.
func (e *Engine) Run(ctx context.Context, p domain.Payload) (domain.Result, error) {
	res := domain.Result{RunID: uuid.Must(uuid.NewV7()).String(), Kind: p.Kind}

	ids, err := e.users.All(ctx)
	if err != nil {
		return res, fmt.Errorf("list users: %w", err)
	}

	log := e.log.With(zap.String("run", res.RunID), zap.String("kind", string(p.Kind)))
	log.Info("broadcast started", zap.Int("recipients", len(ids)))

	for _, id := range ids {
		d := e.deliver(id, p)
		res.Attempted++
		if d.OK() {
			res.Succeeded++
			continue
		}
		res.Failed++
		if errors.Is(d.Err, domain.ErrConfiguration) {
			log.Error("broadcast aborted", zap.Int64("user_id", int64(id)), zap.Error(d.Err),
				zap.Int("attempted", res.Attempted), zap.Int("remaining", len(ids)-res.Attempted))
			return res, d.Err
		}
		log.Debug("delivery failed", zap.Int64("user_id", int64(id)), zap.Error(d.Err))
	}

	log.Info("broadcast finished",
		zap.Int("attempted", res.Attempted),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (e *Engine) deliver(id domain.UserID, p domain.Payload) Delivery {
	var err error
	switch p.Kind {
	case domain.KindCopy:
		err = e.sender.CopyMessage(int64(id), p.Ref.ChatID, p.Ref.MessageID)
	case domain.KindText:
		err = e.sender.SendText(int64(id), p.Text)
	default:
		err = fmt.Errorf("%w: unknown payload kind %q", domain.ErrConfiguration, p.Kind)
	}
	return Delivery{UserID: id, Err: err}
}
