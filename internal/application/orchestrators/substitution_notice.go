package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "studio/internal/adapters/email"
	"studio/internal/domain/outbox"
	"studio/internal/domain/schedule"
	"studio/internal/domain/session"
)

// substitutionTag labels substitution notices at the email provider.
const substitutionTag = "substitution"

// OutboxWriter enqueues failed side effects for the background worker.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// SubstitutionNotifier emails a session's members after its instructor changes.
type SubstitutionNotifier struct {
	Accounts    AccountLookup
	Sender      emailAdapter.Sender
	Outbox      OutboxWriter
	FromAddress string
	ReplyTo     string
	StudioName  string
	GenerateID  func() string
	Now         func() time.Time
}

// NoticePayload is the outbox payload for one undelivered notice.
type NoticePayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// NoticeReport counts what happened to a substitution notice.
type NoticeReport struct {
	Sent   int `json:"sent"`   // accepted by the email provider
	Queued int `json:"queued"` // left in the outbox for the retry worker
}

// Notify sends the session's notification message to every member with an email.
// Delivery failures are queued, never returned: the substitution has already committed.
// Delivery outlives the caller's request, so cancellation of ctx is ignored.
// PRE: s is the committed session; s.NotificationMessage is non-empty
// POST: Sent + Queued <= recipients with an email
func (n *SubstitutionNotifier) Notify(ctx context.Context, s session.Session, instructorName string) NoticeReport {
	if n == nil || n.Sender == nil || s.NotificationMessage == "" {
		return NoticeReport{}
	}
	ctx = context.WithoutCancel(ctx)

	subject := fmt.Sprintf("%s: instructor change", s.Title)
	html := emailAdapter.Layout(
		fmt.Sprintf("%s, %s", s.Title, schedule.FormatRecurring(s.DayOfWeek, s.StartTime)),
		emailAdapter.RenderMarkdown(s.NotificationMessage),
		fmt.Sprintf("Taught by %s. You are receiving this because you booked this class at %s.", instructorName, n.StudioName),
	)

	var reqs []emailAdapter.SendRequest
	for _, userID := range s.EnrolledUserIDs {
		acct, err := n.Accounts.GetByID(ctx, userID)
		if err != nil {
			slog.Warn("notice_event", "event", "recipient_lookup_failed", "session_id", s.ID, "user_id", userID, "error", err.Error())
			continue
		}
		if acct.Email == "" {
			continue
		}
		reqs = append(reqs, emailAdapter.SendRequest{
			To:      []string{acct.Email},
			From:    n.FromAddress,
			Subject: subject,
			HTML:    html,
			ReplyTo: n.ReplyTo,
			Tag:     substitutionTag,
		})
	}
	if len(reqs) == 0 {
		return NoticeReport{}
	}

	if _, err := n.Sender.SendBatch(ctx, reqs); err != nil {
		slog.Error("notice_event", "event", "substitution_notice_failed", "session_id", s.ID, "recipients", len(reqs), "error", err.Error())
		var report NoticeReport
		for _, req := range reqs {
			if n.enqueue(ctx, req, err) {
				report.Queued++
			}
		}
		return report
	}

	slog.Info("notice_event", "event", "substitution_notice_sent", "session_id", s.ID, "recipients", len(reqs))
	return NoticeReport{Sent: len(reqs)}
}

// enqueue reports whether the notice reached the outbox.
func (n *SubstitutionNotifier) enqueue(ctx context.Context, req emailAdapter.SendRequest, cause error) bool {
	if n.Outbox == nil {
		return false
	}
	payload, err := json.Marshal(NoticePayload{To: req.To[0], Subject: req.Subject, HTML: req.HTML, ReplyTo: req.ReplyTo})
	if err != nil {
		slog.Error("notice_event", "event", "outbox_encode_failed", "error", err.Error())
		return false
	}
	entry := outbox.NewEntry(n.GenerateID(), outbox.ActionTypeSubstitutionNotice, string(payload), cause, n.Now())
	if err := n.Outbox.Save(ctx, entry); err != nil {
		slog.Error("notice_event", "event", "outbox_enqueue_failed", "to", req.To[0], "error", err.Error())
		return false
	}
	return true
}

// SubstitutionNoticeExecutor replays a queued notice.
type SubstitutionNoticeExecutor struct {
	Sender      emailAdapter.Sender
	FromAddress string
}

// Execute sends the notice in payload.
// PRE: payload is valid JSON matching NoticePayload
// POST: email sent via configured sender, returns message ID
// INVARIANT: outbox entry status managed by caller
func (e *SubstitutionNoticeExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p NoticePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.To == "" {
		return "", errors.New("notice payload has no recipient")
	}
	res, err := e.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{p.To},
		From:    e.FromAddress,
		Subject: p.Subject,
		HTML:    p.HTML,
		ReplyTo: p.ReplyTo,
		Tag:     substitutionTag,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
