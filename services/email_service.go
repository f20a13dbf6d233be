package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"time"

	"github.com/bracketlab/esports-server/config"
	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
)

// EmailService отправляет письма через SMTP. Отправка синхронная и не должна
// вызываться на горячем пути без обёртки best effort.
type EmailService struct {
	cfg      *config.Config
	userRepo repositories.UserRepository
}

func NewEmailService(cfg *config.Config, userRepo repositories.UserRepository) *EmailService {
	return &EmailService{cfg: cfg, userRepo: userRepo}
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
		InsecureSkipVerify: true,
		ServerName:         s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("ошибка TLS соединения: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("ошибка соединения SMTP: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("ошибка команды STARTTLS: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("ошибка аутентификации SMTP: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("ошибка MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("ошибка RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("ошибка команды DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("ошибка записи сообщения: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия DATA: %w", err)
	}

	return nil
}

// SendRegistrationConfirmation отправляет капитану команды подтверждение
// регистрации на турнир.
func (s *EmailService) SendRegistrationConfirmation(team *models.Team, tournament *models.Tournament) error {
	if !s.cfg.EmailEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	captain, err := s.userRepo.GetByID(ctx, team.CaptainID)
	if err != nil {
		return fmt.Errorf("не удалось найти капитана команды: %w", err)
	}

	subject := fmt.Sprintf("Регистрация на турнир %s подтверждена", tournament.Name)
	body := fmt.Sprintf(
		"<p>Команда <b>%s</b> зарегистрирована на турнир <b>%s</b>.</p>"+
			"<p>Игра: %s<br>Формат: %s<br>Начало: %s</p>",
		team.Name, tournament.Name, tournament.Game, tournament.Format,
		tournament.StartDate.Format("02.01.2006 15:04 MST"),
	)
	return s.SendEmail([]string{captain.Email}, subject, body)
}
