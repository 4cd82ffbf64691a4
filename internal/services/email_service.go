package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendProposalNotification(email, title, message, link string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendProposalNotification(email, title, message, link string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", title)

	body := fmt.Sprintf(`
		<h3>%s</h3>
		<p>%s</p>
	`, title, message)
	if link != "" {
		body += fmt.Sprintf(`<p><a href=%q>Open the proposal</a></p>`, link)
	}

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send proposal notification: %w", err)
	}

	return nil
}
