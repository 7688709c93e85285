package audit

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Destination is the chat operational events are mirrored to: a numeric chat
// id or a public @channel username.
type Destination struct {
	ChatID   int64
	Username string
}

// IsZero reports whether no destination is configured.
func (d Destination) IsZero() bool { return d.ChatID == 0 && d.Username == "" }

func (d Destination) String() string {
	if d.Username != "" {
		return d.Username
	}
	return strconv.FormatInt(d.ChatID, 10)
}

// ParseDestination accepts "", "-100123..." or "@channel".
func ParseDestination(raw string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return Destination{}, nil
	case strings.HasPrefix(raw, "@"):
		if len(raw) < 2 {
			return Destination{}, errors.New("empty channel username")
		}
		return Destination{Username: raw}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Destination{}, err
	}
	if id == 0 {
		return Destination{}, errors.New("chat id must not be 0")
	}
	return Destination{ChatID: id}, nil
}

// Poster delivers a text to a destination. telegram.Client implements it.
type Poster interface {
	Post(dest Destination, text string) error
}

// Notifier mirrors events to the log channel. Delivery is best effort:
// failures are logged and never returned.
type Notifier struct {
	dest   Destination
	poster Poster
	log    *zap.Logger
}

// New creates a Notifier. A zero destination disables it silently.
func New(dest Destination, poster Poster, log *zap.Logger) *Notifier {
	return &Notifier{dest: dest, poster: poster, log: log}
}

// Enabled reports whether a destination is configured.
func (n *Notifier) Enabled() bool { return n != nil && !n.dest.IsZero() }

// Notify posts text if a destination is configured. It reports whether the
// post went through.
func (n *Notifier) Notify(text string) bool {
	if !n.Enabled() {
		return false
	}
	if err := n.poster.Post(n.dest, text); err != nil {
		n.log.Warn("audit post failed", zap.String("dest", n.dest.String()), zap.Error(err))
		return false
	}
	return true
}
