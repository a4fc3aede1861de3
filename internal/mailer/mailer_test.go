package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"estate/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestAsync_DeliversInBackground(t *testing.T) {
	sender := &recordingSender{}
	async := NewAsync(sender, 0)

	before := testutil.ToFloat64(observability.MailSent.WithLabelValues("ok"))
	async.SendAsync(Message{To: "a@example.com", Subject: "hi"})
	async.SendAsync(Message{To: "b@example.com", Subject: "hi"})
	async.Wait()

	assert.Len(t, sender.sent, 2)
	assert.Equal(t, before+2, testutil.ToFloat64(observability.MailSent.WithLabelValues("ok")))
}

func TestAsync_FailureIsCounted(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	async := NewAsync(sender, 0)

	before := testutil.ToFloat64(observability.MailSent.WithLabelValues("error"))
	async.SendAsync(Message{To: "a@example.com"})
	async.Wait()

	assert.Equal(t, before+1, testutil.ToFloat64(observability.MailSent.WithLabelValues("error")))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := &LogSender{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	assert.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "Reset", Body: "link"}))
	assert.Contains(t, buf.String(), `"to":"a@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"Reset"`)
}
