package relay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledass/Auto-accepting-repo/internal/domain"
)

// InlineLimit is the largest /users reply sent as text; longer lists go out
// as a document.
const InlineLimit = 4000

const (
	auditNewUser   = "🆕 New user: %d"
	auditApproved  = "✅ Approved: %d in %s (%d)"
	auditBroadcast = "📢 Broadcast (%s) by %d\n%s"
	auditStats     = "📈 Stats requested by %d: %d users."
	auditUsers     = "📤 /users command used by %d"

	auditBroadcastAborted = "⛔ Broadcast (%s) by %d aborted\n%s"

	// AuditStarted is posted once the bot is polling.
	AuditStarted = "✅ Bot started successfully!"
)

// FormatResult renders a broadcast tally for the admin and the audit log.
func FormatResult(r domain.Result) string {
	return fmt.Sprintf("📢 Broadcast (%s) done:\n👥 Total: %d\n✅ Sent: %d\n❌ Failed: %d",
		r.Kind, r.Attempted, r.Succeeded, r.Failed)
}

// UsersReport is the rendered /users answer: Inline text, or File contents
// when the text would exceed InlineLimit.
type UsersReport struct {
	Count  int
	Inline string
	File   []byte
}

// Empty reports whether there are no users at all.
func (r UsersReport) Empty() bool { return r.Count == 0 }

// RenderUsers builds the /users answer, one id per line.
func RenderUsers(ids []domain.UserID) UsersReport {
	if len(ids) == 0 {
		return UsersReport{}
	}
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	list := b.String()

	inline := fmt.Sprintf("👥 Total users: %d\n\n%s", len(ids), list)
	if len([]rune(inline)) > InlineLimit {
		return UsersReport{Count: len(ids), File: []byte(list)}
	}
	return UsersReport{Count: len(ids), Inline: inline}
}
