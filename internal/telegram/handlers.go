package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ledass/Auto-accepting-repo/internal/domain"
	"github.com/ledass/Auto-accepting-repo/internal/relay"
)

// --- Generic helpers ---

func (r *Router) reply(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := r.api.Send(msg); err != nil {
		r.log.Warn("reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// replyError maps use-case errors to the user-visible rejection texts.
// It reports false for errors that are not a rejection.
func (r *Router) replyError(msg *tgbotapi.Message, err error) bool {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		r.log.Warn("admin command denied",
			zap.Int64("user_id", msg.From.ID), zap.String("command", msg.Command()))
		r.reply(msg.Chat.ID, msg.MessageID, textUnauthorized)
	case errors.Is(err, domain.ErrUsage):
		r.reply(msg.Chat.ID, msg.MessageID, textUsage)
	default:
		return false
	}
	return true
}

// --- Registration ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := r.svc.Register(ctx, domain.UserID(msg.From.ID)); err != nil {
		r.log.Error("register failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		r.reply(msg.Chat.ID, msg.MessageID, textRegisterFailed)
		return
	}
	r.reply(msg.Chat.ID, msg.MessageID, welcomeText)
}

// --- Join requests ---

func (r *Router) handleJoinRequest(req *tgbotapi.ChatJoinRequest) {
	if err := r.svc.ApproveJoin(req.Chat.ID, req.Chat.Title, domain.UserID(req.From.ID)); err != nil {
		r.log.Error("approve join request failed",
			zap.Int64("chat_id", req.Chat.ID), zap.Int64("user_id", req.From.ID), zap.Error(err))
	}
}

// --- Broadcast ---

func (r *Router) handleBroadcast(msg *tgbotapi.Message) {
	var ref *domain.MessageRef
	if msg.ReplyToMessage != nil {
		ref = &domain.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ReplyToMessage.MessageID}
	}
	payload, err := r.svc.PrepareBroadcast(domain.UserID(msg.From.ID), ref, msg.CommandArguments())
	if err != nil {
		if !r.replyError(msg, err) {
			r.log.Error("prepare broadcast failed", zap.Error(err))
			r.reply(msg.Chat.ID, msg.MessageID, textInternalError)
		}
		return
	}

	job := broadcastJob{
		chatID:    msg.Chat.ID,
		messageID: msg.MessageID,
		sender:    domain.UserID(msg.From.ID),
		payload:   payload,
	}
	if !r.enqueue(job) {
		r.reply(msg.Chat.ID, msg.MessageID, textBusy)
		return
	}
	r.log.Info("broadcast queued", zap.String("kind", string(payload.Kind)), zap.Int("pending", len(r.jobs)))
}

func (r *Router) executeBroadcast(ctx context.Context, job broadcastJob) {
	res, err := r.svc.Broadcast(ctx, job.sender, job.payload)
	if err != nil {
		r.log.Error("broadcast failed", zap.String("run", res.RunID), zap.Error(err))
		if errors.Is(err, domain.ErrConfiguration) {
			r.reply(job.chatID, job.messageID, fmt.Sprintf(textBroadcastAbort, relay.FormatResult(res)))
			return
		}
		r.reply(job.chatID, job.messageID, textInternalError)
		return
	}
	r.reply(job.chatID, job.messageID, relay.FormatResult(res))
}

// --- Admin queries ---

func (r *Router) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	n, err := r.svc.Stats(ctx, domain.UserID(msg.From.ID))
	if err != nil {
		if !r.replyError(msg, err) {
			r.log.Error("stats failed", zap.Error(err))
			r.reply(msg.Chat.ID, msg.MessageID, textInternalError)
		}
		return
	}
	r.reply(msg.Chat.ID, msg.MessageID, fmt.Sprintf(textStats, n))
}

func (r *Router) handleUsers(ctx context.Context, msg *tgbotapi.Message) {
	rep, err := r.svc.Users(ctx, domain.UserID(msg.From.ID))
	if err != nil {
		if !r.replyError(msg, err) {
			r.log.Error("users failed", zap.Error(err))
			r.reply(msg.Chat.ID, msg.MessageID, textInternalError)
		}
		return
	}

	switch {
	case rep.Empty():
		r.reply(msg.Chat.ID, msg.MessageID, textNoUsers)
	case rep.File == nil:
		r.reply(msg.Chat.ID, msg.MessageID, rep.Inline)
	default:
		if err := r.sendUsersFile(msg.Chat.ID, msg.MessageID, rep.File); err != nil {
			r.log.Error("send users file failed", zap.Int("users", rep.Count), zap.Error(err))
			r.reply(msg.Chat.ID, msg.MessageID, textInternalError)
		}
	}
}

// sendUsersFile writes the list to a temporary file, uploads it as a
// document and removes the file afterwards.
func (r *Router) sendUsersFile(chatID int64, replyTo int, data []byte) error {
	f, err := os.CreateTemp("", "user_ids-*.txt")
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: usersFileName, Reader: f})
	doc.ReplyToMessageID = replyTo
	_, err = r.api.Send(doc)
	return err
}
