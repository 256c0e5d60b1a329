package messaging

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"glasserp/internal/domain/notification"
)

// SMTPConfig configures the e-mail driver.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Email sends plain-text mail over SMTP with STARTTLS when offered.
type Email struct {
	cfg  SMTPConfig
	now  func() time.Time
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail creates the e-mail driver, nil when SMTP is unconfigured.
func NewEmail(cfg SMTPConfig) notification.Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &Email{cfg: cfg, now: time.Now, send: smtp.SendMail}
}

// Channel implements notification.Sender.
func (e *Email) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send delivers msg to the recipient's address. smtp.SendMail takes no
// context, so a cancelled ctx is only honoured before dialling.
func (e *Email) Send(ctx context.Context, to notification.Recipient, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.Host)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- e.send(addr, auth, e.cfg.From, []string{to.Email}, e.compose(to, msg))
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

func (e *Email) compose(to notification.Recipient, msg notification.Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + e.cfg.From + "\r\n")
	if to.Name != "" {
		b.WriteString("To: " + mime.QEncoding.Encode("utf-8", to.Name) + " <" + to.Email + ">\r\n")
	} else {
		b.WriteString("To: " + to.Email + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + e.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
