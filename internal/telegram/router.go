package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ledass/Auto-accepting-repo/internal/domain"
	"github.com/ledass/Auto-accepting-repo/internal/relay"
)

// AllowedUpdates lists the update types the bot subscribes to.
var AllowedUpdates = []string{"message", "chat_join_request"}

// broadcastJob is an authorized, resolved /broadcast waiting for the worker.
type broadcastJob struct {
	chatID    int64
	messageID int
	sender    domain.UserID
	payload   domain.Payload
}

// Router wires Telegram updates to handlers. Updates are handled one at a
// time by the caller's loop; broadcasts are handed to a single worker so
// other updates keep flowing while one is in flight.
type Router struct {
	api     API
	svc     *relay.Service
	log     *zap.Logger
	botName string
	jobs    chan broadcastJob
	wg      sync.WaitGroup
}

// NewRouter creates a new Telegram router. botName is the bot's own
// username; commands addressed to any other bot are ignored. queue bounds
// pending broadcasts.
func NewRouter(api API, svc *relay.Service, log *zap.Logger, botName string, queue int) *Router {
	if queue <= 0 {
		queue = 1
	}
	return &Router{
		api:     api,
		svc:     svc,
		log:     log,
		botName: botName,
		jobs:    make(chan broadcastJob, queue),
	}
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.ChatJoinRequest != nil {
		r.handleJoinRequest(upd.ChatJoinRequest)
		return
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if !r.addressedToMe(msg) {
		r.log.Debug("command for another bot ignored", zap.String("command", msg.CommandWithAt()))
		return
	}
	switch msg.Command() {
	case "start":
		r.handleStart(ctx, msg)
	case "broadcast":
		r.handleBroadcast(msg)
	case "stats":
		r.handleStats(ctx, msg)
	case "users":
		r.handleUsers(ctx, msg)
	default:
		// Unknown command: ignore silently
	}
}

// addressedToMe reports whether a command is unqualified or qualified with
// this bot's username ("/start@name").
func (r *Router) addressedToMe(msg *tgbotapi.Message) bool {
	_, target, qualified := strings.Cut(msg.CommandWithAt(), "@")
	if !qualified || r.botName == "" {
		return true
	}
	return strings.EqualFold(target, r.botName)
}

// Start launches the broadcast worker. It executes queued broadcasts one
// after another until ctx is canceled; a broadcast that has started always
// runs to completion.
func (r *Router) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runBroadcasts(ctx)
	}()
}

func (r *Router) runBroadcasts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(r.jobs); n > 0 {
				r.log.Warn("dropping queued broadcasts on shutdown", zap.Int("pending", n))
			}
			r.log.Info("broadcast worker stopping")
			return
		case job := <-r.jobs:
			// Both cases may be ready at once; shutdown wins over a queued job.
			if ctx.Err() != nil {
				r.log.Warn("dropping queued broadcasts on shutdown", zap.Int("pending", len(r.jobs)+1),
					zap.Int64("sender", int64(job.sender)))
				r.log.Info("broadcast worker stopping")
				return
			}
			r.executeBroadcast(context.WithoutCancel(ctx), job)
		}
	}
}

// Wait blocks until the broadcast worker has returned.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) enqueue(job broadcastJob) bool {
	select {
	case r.jobs <- job:
		return true
	default:
		return false
	}
}
