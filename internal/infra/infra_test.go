package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qist/internal/config"
	"qist/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Circuit breaker ──────────────────────────────────────────────────────────

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("push", CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }
	fail := func() error { return errors.New("gateway 503") }
	ok := func() error { return nil }

	assert.Error(t, cb.Execute(fail))
	assert.Equal(t, CBClosed, cb.State())
	assert.Error(t, cb.Execute(fail))
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker fails fast")

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("smtp", CircuitBreakerConfig{FailureThreshold: 1})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errors.New("x") })
	now = now.Add(31 * time.Second)
	_ = cb.Execute(func() error { return errors.New("still down") })
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("push", CircuitBreakerConfig{FailureThreshold: 2})
	fail := func() error { return errors.New("x") }

	_ = cb.Execute(fail)
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(fail)
	assert.Equal(t, CBClosed, cb.State())
}

// ── Push client ──────────────────────────────────────────────────────────────

func TestPushClient_Send(t *testing.T) {
	var got pushRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Message.Token == "bad-token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewPushClient(srv.URL, "gateway-key")
	require.True(t, c.Enabled())
	err := c.Send(context.Background(), PushMessage{
		Token: "device-1",
		Title: "New Order Assigned",
		Body:  "Order R has been assigned to you for verification.",
		Data:  map[string]string{"order_id": "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer gateway-key", auth)
	assert.Equal(t, "device-1", got.Message.Token)
	assert.Equal(t, "New Order Assigned", got.Message.Notification.Title)
	assert.Equal(t, "7", got.Message.Data["order_id"])

	err = c.Send(context.Background(), PushMessage{Token: "bad-token"})
	assert.ErrorContains(t, err, "404")

	assert.False(t, NewPushClient("", "").Enabled())
}

func TestMailerEnabled(t *testing.T) {
	assert.False(t, NewMailer(&config.Config{}).Enabled())
	m := NewMailer(&config.Config{SMTPHost: "smtp.test", SMTPPort: 587, SMTPUser: "ops@qist.test"})
	assert.True(t, m.Enabled())
	assert.Equal(t, "ops@qist.test", m.from)
	assert.Equal(t, "smtp.test:587", m.addr)
}

// ── Storage ──────────────────────────────────────────────────────────────────

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8000/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Save(ctx, "verifications/3/a.jpg", strings.NewReader("bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/uploads/verifications/3/a.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "verifications", "3", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))

	require.NoError(t, s.Delete(ctx, "verifications/3/a.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "verifications", "3", "a.jpg"))
	assert.NoError(t, s.Delete(ctx, "verifications/3/a.jpg"), "deleting twice is fine")
}

func TestLocalStorage_KeysCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(dir, "uploads"), "http://x")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "../../escape.txt", strings.NewReader("x"), "")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "uploads", "escape.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestNewStorage_UnknownDriver(t *testing.T) {
	_, err := NewStorage(context.Background(), &config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}

// ── PDF ──────────────────────────────────────────────────────────────────────

func TestGenerateVerificationReport(t *testing.T) {
	name, approved := "Bilal", true
	v := &model.Verification{
		ID:         12,
		Status:     model.VerificationStatusCompleted,
		StartTime:  time.Now(),
		IsApproved: &approved,
		Order:      &model.Order{OrderRef: "QIST-20260101-1234", CustomerName: "Ali", Months: 6},
		Purchaser:  &model.PurchaserVerification{Name: &name},
		Grantors:   []model.GrantorVerification{{GrantorNumber: 1}},
		Documents: []model.VerificationDocument{
			{DocumentType: model.DocCNICFront},
			{DocumentType: model.DocCNICFront},
		},
	}
	path, err := GenerateVerificationReport(v, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "verification_12.pdf", filepath.Base(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500))
}
