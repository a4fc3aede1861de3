// Package mailer delivers outbound email on a best-effort basis.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"estate/internal/observability"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	span, _ := observability.StartClientSpan(ctx, "smtp", "send")
	defer span.End()

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	err := smtp.SendMail(addr, auth, s.From, []string{msg.To}, []byte(b.String()))
	span.SetError(err)
	return err
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = observability.GlobalLogger.Logger
	}
	logger.InfoContext(ctx, "outbound email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// Async hands messages to a Sender on detached goroutines. Failures are
// logged and counted, never returned to the caller.
type Async struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps sender. Each delivery gets its own context bounded by
// timeout.
func NewAsync(sender Sender, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Async{sender: sender, timeout: timeout}
}

// SendAsync schedules msg and returns immediately.
func (a *Async) SendAsync(msg Message) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		fields := map[string]any{"to": msg.To, "subject": msg.Subject}
		observability.LogAsyncOperationStart(ctx, "mail.send", fields)
		if err := a.sender.Send(ctx, msg); err != nil {
			observability.MailSent.WithLabelValues("error").Inc()
			observability.LogAsyncOperationError(ctx, "mail.send", err, fields)
			return
		}
		observability.MailSent.WithLabelValues("ok").Inc()
		observability.LogAsyncOperationEnd(ctx, "mail.send", fields)
	}()
}

// Wait blocks until every scheduled delivery has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
