package verify

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gradlist/internal/config"
	"gradlist/internal/storage"
)

var (
	ErrAlreadyVerified = errors.New("email already verified")
	ErrNoCode          = errors.New("no verification code requested")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeMismatch    = errors.New("verification code mismatch")
)

type Sender interface {
	SendVerificationCode(to, code string, ttlMin int) error
}

type Service struct {
	db     *storage.DB
	cfg    config.Config
	sender Sender
}

func NewService(db *storage.DB, cfg config.Config, sender Sender) *Service {
	return &Service{db: db, cfg: cfg, sender: sender}
}

// Apply issues a fresh single-use code for the address and mails it.
// An address that already completed verification is refused.
func (s *Service) Apply(email string) error {
	existing, err := s.db.GetVerification(email)
	if err != nil {
		return err
	}
	if existing != nil && existing.Used {
		return ErrAlreadyVerified
	}

	code, err := randomCode()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(time.Duration(s.cfg.VerifyCodeTTLMin) * time.Minute).Format(time.RFC3339)

	if err := s.db.UpsertVerification(email, code, expiresAt); err != nil {
		return err
	}
	return s.sender.SendVerificationCode(email, code, s.cfg.VerifyCodeTTLMin)
}

// Check consumes the code for an address. The code is marked used only
// when it matches and has not expired.
func (s *Service) Check(email, code string) error {
	row, err := s.db.GetVerification(email)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrNoCode
	}
	if row.Used {
		return ErrAlreadyVerified
	}

	expires, err := time.Parse(time.RFC3339, row.ExpiresAt)
	if err != nil || time.Now().UTC().After(expires) {
		return ErrCodeExpired
	}
	if row.Code != code {
		return ErrCodeMismatch
	}

	return s.db.MarkVerificationUsed(row.ID)
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
