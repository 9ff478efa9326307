package mailer

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"gopkg.in/mail.v2"
)

//go:embed "templates"
var templateFS embed.FS

// Sender delivers templated mail to a single recipient.
type Sender interface {
	Send(recipient, templateFile string, data any) error
}

// Mailer sends mail through an SMTP server.
type Mailer struct {
	dialer  *mail.Dialer
	sender  string
	retries int
	backoff time.Duration
}

// New returns a Mailer with a 5-second dial timeout. sender is the From
// address, e.g. "Library <no-reply@library.local>".
func New(host string, port int, username, password, sender string) Mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second
	return Mailer{
		dialer:  dialer,
		sender:  sender,
		retries: 3,
		backoff: time.Second,
	}
}

// message is a rendered template ready to be handed to the dialer.
type message struct {
	subject   string
	plainBody string
	htmlBody  string
}

// render executes the subject, plainBody and htmlBody blocks of templateFile.
func render(templateFile string, data any) (message, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return message{}, err
	}
	var out [3]bytes.Buffer
	for i, name := range []string{"subject", "plainBody", "htmlBody"} {
		err = tmpl.ExecuteTemplate(&out[i], name, data)
		if err != nil {
			return message{}, err
		}
	}
	return message{
		subject:   out[0].String(),
		plainBody: out[1].String(),
		htmlBody:  out[2].String(),
	}, nil
}

// Send renders templateFile with data and delivers it, retrying failed
// dials a few times before giving up.
func (m Mailer) Send(recipient, templateFile string, data any) error {
	rendered, err := render(templateFile, data)
	if err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", rendered.subject)
	msg.SetBody("text/plain", rendered.plainBody)
	msg.AddAlternative("text/html", rendered.htmlBody)
	for i := 1; i <= m.retries; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
		time.Sleep(m.backoff)
	}
	return err
}

// Discard renders templates but never delivers them. It stands in for
// Mailer when no SMTP host is configured.
type Discard struct{}

func (Discard) Send(_, templateFile string, data any) error {
	_, err := render(templateFile, data)
	return err
}
