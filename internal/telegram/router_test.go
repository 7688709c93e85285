package telegram

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledass/Auto-accepting-repo/internal/audit"
	"github.com/ledass/Auto-accepting-repo/internal/broadcast"
	"github.com/ledass/Auto-accepting-repo/internal/domain"
	"github.com/ledass/Auto-accepting-repo/internal/relay"
	"github.com/ledass/Auto-accepting-repo/internal/store"
)

const (
	adminID    = 100
	logChannel = -1000
	botName    = "AutoAcceptBot"
)

type sentDoc struct {
	chatID int64
	name   string
	body   string
}

// fakeBot records what the router sends and fails for blocked chats.
type fakeBot struct {
	blocked   map[int64]bool
	messages  map[int64][]string
	docs      []sentDoc
	copies    []tgbotapi.CopyMessageConfig
	approvals []tgbotapi.ApproveChatJoinRequestConfig
}

func newFakeBot() *fakeBot {
	return &fakeBot{blocked: map[int64]bool{}, messages: map[int64][]string{}}
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch cfg := c.(type) {
	case tgbotapi.MessageConfig:
		if b.blocked[cfg.ChatID] {
			return tgbotapi.Message{}, &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
		}
		b.messages[cfg.ChatID] = append(b.messages[cfg.ChatID], cfg.Text)
	case tgbotapi.DocumentConfig:
		fr, ok := cfg.File.(tgbotapi.FileReader)
		if !ok {
			return tgbotapi.Message{}, errors.New("unexpected file type")
		}
		body, err := io.ReadAll(fr.Reader)
		if err != nil {
			return tgbotapi.Message{}, err
		}
		b.docs = append(b.docs, sentDoc{chatID: cfg.ChatID, name: fr.Name, body: string(body)})
	default:
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	return tgbotapi.Message{MessageID: 1}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	cfg, ok := c.(tgbotapi.ApproveChatJoinRequestConfig)
	if !ok {
		return nil, errors.New("unexpected request")
	}
	b.approvals = append(b.approvals, cfg)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) CopyMessage(cfg tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error) {
	if b.blocked[cfg.ChatID] {
		return tgbotapi.MessageID{}, &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	}
	b.copies = append(b.copies, cfg)
	return tgbotapi.MessageID{MessageID: 2}, nil
}

type harness struct {
	router *Router
	bot    *fakeBot
	users  store.Repo
}

func newHarness(t *testing.T, seed ...domain.UserID) harness {
	t.Helper()
	bot := newFakeBot()
	return newHarnessOn(t, bot, bot, seed...)
}

// newHarnessOn wires the router to api while bot keeps the recorded traffic.
func newHarnessOn(t *testing.T, bot *fakeBot, api API, seed ...domain.UserID) harness {
	t.Helper()
	ctx := context.Background()
	users, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Close() })
	for _, id := range seed {
		_, err := users.Add(ctx, id)
		require.NoError(t, err)
	}

	client := NewClient(api)
	log := zap.NewNop()
	svc := relay.New(
		users,
		domain.Admin{ID: adminID, Enabled: true},
		broadcast.New(users, client, log),
		client,
		audit.New(audit.Destination{ChatID: logChannel}, client, log),
		log,
	)
	return harness{router: NewRouter(api, svc, log, botName, 2), bot: bot, users: users}
}

// command builds a private-chat command message from user `from`.
func command(from int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func (h harness) handle(msg *tgbotapi.Message) {
	h.router.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

// drain runs every queued broadcast on the calling goroutine.
func (h harness) drain() {
	for {
		select {
		case job := <-h.router.jobs:
			h.router.executeBroadcast(context.Background(), job)
		default:
			return
		}
	}
}

func TestStart_RegistersOnceAndAlwaysWelcomes(t *testing.T) {
	h := newHarness(t)

	h.handle(command(7, "/start"))
	h.handle(command(7, "/start"))

	require.Equal(t, []string{welcomeText, welcomeText}, h.bot.messages[7])
	require.Equal(t, []string{"🆕 New user: 7"}, h.bot.messages[logChannel])

	n, err := h.users.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCommands_ForAnotherBotAreIgnored(t *testing.T) {
	h := newHarness(t, 111, 222)

	h.handle(command(7, "/start@SomeOtherBot"))
	h.handle(command(adminID, "/broadcast@SomeOtherBot hello"))
	h.handle(command(adminID, "/stats@SomeOtherBot"))
	h.drain()

	n, err := h.users.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Empty(t, h.bot.messages)
}

func TestCommands_AddressedToThisBot(t *testing.T) {
	h := newHarness(t, 111)

	h.handle(command(7, "/start@autoacceptbot"))
	h.handle(command(adminID, "/broadcast@AutoAcceptBot hello"))
	h.drain()

	require.Equal(t, []string{welcomeText}, h.bot.messages[7])
	require.Equal(t, []string{"hello"}, h.bot.messages[111])
}

func TestBroadcast_TextWithBlockedRecipient(t *testing.T) {
	h := newHarness(t, 111, 222)
	h.bot.blocked[222] = true

	h.handle(command(adminID, "/broadcast hello"))
	require.Empty(t, h.bot.messages[111], "nothing is sent before the worker runs")
	h.drain()

	require.Equal(t, []string{"hello"}, h.bot.messages[111])
	require.Equal(t, []string{"📢 Broadcast (text) done:\n👥 Total: 2\n✅ Sent: 1\n❌ Failed: 1"}, h.bot.messages[adminID])
	require.Len(t, h.bot.messages[logChannel], 1)
}

func TestBroadcast_ReplyCopiesAndIgnoresText(t *testing.T) {
	h := newHarness(t, 111, 222)

	msg := command(adminID, "/broadcast some words")
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 77}
	h.handle(msg)
	h.drain()

	require.Len(t, h.bot.copies, 2)
	for _, c := range h.bot.copies {
		require.Equal(t, int64(adminID), c.FromChatID)
		require.Equal(t, 77, c.MessageID)
	}
	require.Empty(t, h.bot.messages[111])
	require.Contains(t, h.bot.messages[adminID][0], "Broadcast (copy) done")
}

func TestBroadcast_UsageAndUnauthorized(t *testing.T) {
	h := newHarness(t, 111)

	h.handle(command(adminID, "/broadcast"))
	h.handle(command(111, "/broadcast hi"))
	h.drain()

	require.Equal(t, []string{textUsage}, h.bot.messages[adminID])
	require.Equal(t, []string{textUnauthorized}, h.bot.messages[111])
	require.Empty(t, h.bot.messages[logChannel])
}

func TestBroadcast_QueueFullIsReported(t *testing.T) {
	h := newHarness(t, 111)

	for i := 0; i < 3; i++ {
		h.handle(command(adminID, "/broadcast hi"))
	}
	require.Equal(t, []string{textBusy}, h.bot.messages[adminID])
	require.Contains(t, textBusy, "queue is full")
}

func TestBroadcast_RevokedTokenAborts(t *testing.T) {
	h := newHarness(t, 111, 222)
	svcBot := &revokedBot{fakeBot: h.bot}
	h.router.svc = relay.New(
		h.users,
		domain.Admin{ID: adminID, Enabled: true},
		broadcast.New(h.users, NewClient(svcBot), zap.NewNop()),
		NewClient(svcBot),
		audit.New(audit.Destination{}, NewClient(svcBot), zap.NewNop()),
		zap.NewNop(),
	)

	h.handle(command(adminID, "/broadcast hi"))
	h.drain()

	require.Len(t, h.bot.messages[adminID], 1)
	require.True(t, strings.HasPrefix(h.bot.messages[adminID][0], "⛔ Broadcast aborted"))
	require.Contains(t, h.bot.messages[adminID][0], "👥 Total: 1")
}

// revokedBot rejects deliveries to users as if the token had been revoked,
// while replies to the admin still go through.
type revokedBot struct{ *fakeBot }

func (b *revokedBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if cfg, ok := c.(tgbotapi.MessageConfig); ok && cfg.ChatID != adminID {
		return tgbotapi.Message{}, &tgbotapi.Error{Code: 401, Message: "Unauthorized"}
	}
	return b.fakeBot.Send(c)
}

func TestStatsAndUsers_EmptyStore(t *testing.T) {
	h := newHarness(t)

	h.handle(command(adminID, "/stats"))
	h.handle(command(adminID, "/users"))

	require.Equal(t, []string{"📊 Total users: 0", textNoUsers}, h.bot.messages[adminID])
}

func TestUsers_InlineList(t *testing.T) {
	h := newHarness(t, 111, 222)

	h.handle(command(adminID, "/users"))

	require.Len(t, h.bot.messages[adminID], 1)
	require.Contains(t, h.bot.messages[adminID][0], "👥 Total users: 2")
	require.Empty(t, h.bot.docs)
}

func TestUsers_LargeListSentAsDocument(t *testing.T) {
	seed := make([]domain.UserID, 5000)
	for i := range seed {
		seed[i] = domain.UserID(500_000_000 + i)
	}
	h := newHarness(t, seed...)

	h.handle(command(adminID, "/users"))

	require.Empty(t, h.bot.messages[adminID])
	require.Len(t, h.bot.docs, 1)
	doc := h.bot.docs[0]
	require.Equal(t, int64(adminID), doc.chatID)
	require.Equal(t, usersFileName, doc.name)
	require.Len(t, strings.Split(doc.body, "\n"), 5000)
}

func TestAdminQueries_RejectNonAdmin(t *testing.T) {
	h := newHarness(t, 111)

	h.handle(command(111, "/stats"))
	h.handle(command(111, "/users"))

	require.Equal(t, []string{textUnauthorized, textUnauthorized}, h.bot.messages[111])
	require.Empty(t, h.bot.docs)
}

func TestJoinRequest_ApprovedAndAudited(t *testing.T) {
	h := newHarness(t)

	h.router.HandleUpdate(context.Background(), tgbotapi.Update{
		ChatJoinRequest: &tgbotapi.ChatJoinRequest{
			Chat: tgbotapi.Chat{ID: -500, Title: "Group"},
			From: tgbotapi.User{ID: 9},
		},
	})

	require.Len(t, h.bot.approvals, 1)
	require.Equal(t, int64(-500), h.bot.approvals[0].ChatID)
	require.Equal(t, int64(9), h.bot.approvals[0].UserID)
	require.Equal(t, []string{"✅ Approved: 9 in Group (-500)"}, h.bot.messages[logChannel])
}

func TestClassify(t *testing.T) {
	require.NoError(t, classify(nil))
	require.ErrorIs(t, classify(&tgbotapi.Error{Code: 401, Message: "Unauthorized"}), domain.ErrConfiguration)
	require.NotErrorIs(t, classify(&tgbotapi.Error{Code: 403, Message: "Forbidden"}), domain.ErrConfiguration)
	require.NotErrorIs(t, classify(errors.New("timeout")), domain.ErrConfiguration)
}

func TestWorker_DropsQueuedBroadcastAfterShutdown(t *testing.T) {
	h := newHarness(t, 111)
	h.handle(command(adminID, "/broadcast one"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.router.Start(ctx)
	h.router.Wait()

	require.Empty(t, h.bot.messages[111])
	require.Empty(t, h.bot.messages[adminID])
}

// gatedBot holds the delivery to one chat until release is closed.
type gatedBot struct {
	*fakeBot
	chatID  int64
	entered chan struct{}
	release chan struct{}
}

func (b *gatedBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if cfg, ok := c.(tgbotapi.MessageConfig); ok && cfg.ChatID == b.chatID {
		close(b.entered)
		<-b.release
	}
	return b.fakeBot.Send(c)
}

func TestWorker_InFlightBroadcastFinishesBeforeWait(t *testing.T) {
	bot := newFakeBot()
	gated := &gatedBot{fakeBot: bot, chatID: 111, entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarnessOn(t, bot, gated, 111, 222)
	h.handle(command(adminID, "/broadcast one"))

	ctx, cancel := context.WithCancel(context.Background())
	h.router.Start(ctx)
	<-gated.entered
	cancel()

	done := make(chan struct{})
	go func() {
		h.router.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Wait returned while a broadcast was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gated.release)
	<-done

	require.Equal(t, []string{"one"}, bot.messages[111])
	require.Equal(t, []string{"one"}, bot.messages[222])
	require.Equal(t, []string{"📢 Broadcast (text) done:\n👥 Total: 2\n✅ Sent: 2\n❌ Failed: 0"}, bot.messages[adminID])
}
