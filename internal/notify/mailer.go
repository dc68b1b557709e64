// Package notify sends transactional mail. Every send is best effort:
// called in a goroutine by handlers, logged on failure, never surfaced to
// the request.
package notify

import (
	"fmt"
	"io"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"dormtrack/internal/config"
)

type Mailer struct {
	host    string
	port    int
	user    string
	pass    string
	from    string
	log     *slog.Logger
	enabled bool
}

func NewMailer(cfg config.Config, log *slog.Logger) *Mailer {
	return &Mailer{
		host:    cfg.SMTPHost,
		port:    cfg.SMTPPort,
		user:    cfg.SMTPUser,
		pass:    cfg.SMTPPass,
		from:    cfg.MailFrom,
		log:     log,
		enabled: cfg.SMTPHost != "",
	}
}

func (m *Mailer) send(msg *gomail.Message) {
	if !m.enabled {
		m.log.Debug("mailer disabled, dropping message", "subject", msg.GetHeader("Subject"))
		return
	}
	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		m.log.Error("mail send failed", "subject", msg.GetHeader("Subject"), "err", err)
	}
}

func (m *Mailer) SendVerification(to, username, link string) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Verify your dormitory account")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Hello %s,</p><p>Click the link below to activate your account:</p><p><a href=%q>%s</a></p>",
		username, link, link))
	m.send(msg)
}

func (m *Mailer) SendPasswordReset(to, username, link string) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password reset request")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Hello %s,</p><p>Use the link below to reset your password. It expires in one hour.</p><p><a href=%q>%s</a></p>",
		username, link, link))
	m.send(msg)
}

// SendInspectionReport mails a rendered PDF report.
func (m *Mailer) SendInspectionReport(to, studentName, roomNumber, filename string, pdf []byte) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Inspection report - %s (%s)", studentName, roomNumber))
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Attached is the dormitory inspection report for %s, room %s.</p>", studentName, roomNumber))
	msg.Attach(filename, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(pdf)
		return err
	}))
	m.send(msg)
}
