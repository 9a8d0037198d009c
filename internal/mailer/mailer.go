package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

var verifyEmailTmpl = template.Must(template.New("verify_email").Parse(
	`<p>Hi {{.Name}},</p>
<p>Please click the link below to verify your email address:</p>
<a href="{{.Link}}">Verify Email</a>
<p>This link will expire in 10 minutes.</p>`,
))

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (m *Mailer) SendVerification(to, name, subject, link string) error {
	const op = "mailer.SendVerification"

	var body bytes.Buffer

	err := verifyEmailTmpl.Execute(&body, struct {
		Name string
		Link string
	}{Name: name, Link: link})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.Username)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(msg)
}
