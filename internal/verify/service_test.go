package verify

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gradlist/internal/config"
	"gradlist/internal/storage"
)

type fakeSender struct {
	to   string
	code string
}

func (s *fakeSender) SendVerificationCode(to, code string, ttlMin int) error {
	s.to = to
	s.code = code
	return nil
}

func testVerify(t *testing.T) (*Service, *fakeSender, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg, _ := config.Load()
	sender := &fakeSender{}
	return NewService(db, cfg, sender), sender, db
}

func TestApplyAndCheck(t *testing.T) {
	svc, sender, _ := testVerify(t)

	if err := svc.Apply("a@example.com"); err != nil {
		t.Fatal(err)
	}
	if sender.to != "a@example.com" || len(sender.code) != 6 {
		t.Fatalf("sender=%+v", sender)
	}

	if err := svc.Check("a@example.com", "000000"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("err=%v", err)
	}
	if err := svc.Check("a@example.com", sender.code); err != nil {
		t.Fatal(err)
	}

	// Codes are single use.
	if err := svc.Check("a@example.com", sender.code); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("err=%v", err)
	}
	if err := svc.Apply("a@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("err=%v", err)
	}
}

func TestCheckUnknownAddress(t *testing.T) {
	svc, _, _ := testVerify(t)
	if err := svc.Check("nobody@example.com", "123456"); !errors.Is(err, ErrNoCode) {
		t.Fatalf("err=%v", err)
	}
}

func TestCheckExpiredCode(t *testing.T) {
	svc, _, db := testVerify(t)

	expired := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	if err := db.UpsertVerification("a@example.com", "123456", expired); err != nil {
		t.Fatal(err)
	}

	if err := svc.Check("a@example.com", "123456"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err=%v", err)
	}
}

func TestApplyReissuesCode(t *testing.T) {
	svc, sender, db := testVerify(t)

	if err := svc.Apply("a@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Apply("a@example.com"); err != nil {
		t.Fatal(err)
	}

	// The stored code always tracks the latest mail.
	row, err := db.GetVerification("a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil || row.Code != sender.code {
		t.Fatalf("row=%+v sender=%+v", row, sender)
	}
	if err := svc.Check("a@example.com", sender.code); err != nil {
		t.Fatal(err)
	}
}
