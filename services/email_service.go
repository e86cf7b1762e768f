package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/tkluge/tournament-server/config"
)

type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Implicit TLS
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("failed to open TLS connection: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
	} else {
		// STARTTLS
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("failed to dial SMTP server: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close DATA writer: %w", err)
	}

	return nil
}

func (s *EmailService) renderBody(tmpl *template.Template, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", tmpl.Name(), err)
	}
	return body.String(), nil
}

var teamInviteTemplate = template.Must(template.New("team_invite").Parse(
	`<p>Hi {{.Username}},</p>
<p>You were added to team <b>{{.TeamName}}</b> for the tournament <b>{{.TournamentTitle}}</b>.</p>
<p>Open the tournament page and activate your spot to take part.</p>`))

func (s *EmailService) SendTeamInviteEmail(userEmail, username, teamName, tournamentTitle string) error {
	subject := fmt.Sprintf("You were invited to team %s", teamName)
	body, err := s.renderBody(teamInviteTemplate, struct {
		Username        string
		TeamName        string
		TournamentTitle string
	}{username, teamName, tournamentTitle})
	if err != nil {
		return err
	}
	return s.SendEmail([]string{userEmail}, subject, body)
}

var tournamentStatusTemplate = template.Must(template.New("tournament_status").Parse(
	`<p>Hi {{.Username}},</p>
<p>{{.Message}}</p>
<p>Tournament: <b>{{.TournamentTitle}}</b></p>`))

func (s *EmailService) SendTournamentStatusEmail(userEmail, username, tournamentTitle, message string) error {
	subject := fmt.Sprintf("Tournament '%s' update", tournamentTitle)
	body, err := s.renderBody(tournamentStatusTemplate, struct {
		Username        string
		TournamentTitle string
		Message         string
	}{username, tournamentTitle, message})
	if err != nil {
		return err
	}
	return s.SendEmail([]string{userEmail}, subject, body)
}
