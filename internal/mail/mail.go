package mail

import (
	"fmt"
	"strconv"

	gomail "gopkg.in/mail.v2"
)

type Service struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewService(host, port, user, pass, from string) *Service {
	p, _ := strconv.Atoi(port)
	if p == 0 {
		p = 587
	}
	return &Service{host: host, port: p, user: user, pass: pass, from: from}
}

// SendPasswordReset mails the raw (unhashed) token to the user. Only the hash
// is ever stored server-side.
func (s *Service) SendPasswordReset(to, token string) error {
	body := fmt.Sprintf(
		"You requested a password reset.\n\nYour reset token is:\n\n%s\n\nIt expires in 10 minutes. If you did not request this, ignore this email.",
		token,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your password reset token (valid for 10 minutes)")
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: send failed: %w", err)
	}
	return nil
}
