package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"gradlist/internal/config"
)

type Mailer struct {
	service *gmail.Service
	from    string
}

func New(cfg config.Config) (*Mailer, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}
	if err := cfg.Require("MAIL_FROM", cfg.MailFrom); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailSendScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Mailer{service: svc, from: cfg.MailFrom}, nil
}

func (m *Mailer) SendVerificationCode(to, code string, ttlMin int) error {
	subject := "臺灣研究所透明平台 註冊驗證碼"
	body := fmt.Sprintf("您好，您的驗證碼為：%s，請在 %d 分鐘內使用。", code, ttlMin)
	return m.send(to, subject, body)
}

func (m *Mailer) send(to, subject, body string) error {
	raw, err := buildMessage(m.from, to, subject, body)
	if err != nil {
		return err
	}

	if _, err := m.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Do(); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// buildMessage assembles the MIME message and encodes it the way the
// Gmail API expects raw payloads: base64url without padding.
func buildMessage(from, to, subject, body string) (string, error) {
	msg, err := enmime.Builder().
		From("", from).
		To("", to).
		Subject(subject).
		HTML([]byte(body)).
		Build()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := msg.Encode(&buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}
