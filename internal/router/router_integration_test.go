//go:build integration

package router_test

// End-to-end flow against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"qist/internal/config"
	"qist/internal/infra"
	"qist/internal/model"
	"qist/internal/repository"
	"qist/internal/router"
	"qist/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
	rdb    *redis.Client
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.send(t, req, token)
}

func (e *testEnv) upload(t *testing.T, path string, fields map[string]string, token string) (int, envelope) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "scan.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\xff\xd8\xff\xe0 jpeg"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (e *testEnv) login(t *testing.T, path string, body map[string]string) string {
	t.Helper()
	status, env := e.do(t, http.MethodPost, path, body, "")
	require.Equal(t, http.StatusOK, status, env.Message)
	return decode[struct {
		Token string `json:"token"`
	}](t, env.Data).Token
}

// ── Setup ────────────────────────────────────────────────────────────────────

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("qist_test"),
		tcPostgres.WithUsername("qist"),
		tcPostgres.WithPassword("qist"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "integration-secret-32-characters",
		JWTExpirationHours: 720,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		MaxUploadSizeMB:    5,
		MinDocumentCopies:  1,
		ReportStoragePath:  t.TempDir(),
		Timezone:           "Asia/Karachi",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db), "migrations are idempotent")

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	store, err := infra.NewLocalStorage(t.TempDir(), "http://files.test/uploads")
	require.NoError(t, err)

	seedStaff(t, db)

	srv := httptest.NewServer(router.New(cfg, db, rdb, store))
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, db: db, rdb: rdb}
}

func seedStaff(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	roles := repository.NewRoleRepository(db)
	admin, err := roles.Ensure(ctx, model.RoleAdmin, datatypes.JSONMap{"admin": true})
	require.NoError(t, err)
	officer, err := roles.Ensure(ctx, model.RoleVerificationOfficer, datatypes.JSONMap{})
	require.NoError(t, err)
	agent, err := roles.Ensure(ctx, model.RoleSalesAgent, datatypes.JSONMap{})
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	email := "officer@qist.test"
	users := repository.NewUserRepository(db)
	for _, u := range []*model.User{
		{FullName: "Admin", Username: "admin", RoleID: admin.ID},
		{FullName: "Field Officer", Username: "officer", RoleID: officer.ID, Email: &email},
		{FullName: "Sales Agent", Username: "agent", RoleID: agent.ID},
	} {
		u.PasswordHash = string(hash)
		u.Status = model.UserStatusActive
		require.NoError(t, users.Create(ctx, u))
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestOrderToApprovedVerification(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	adminTok := env.login(t, "/v1/auth/login", map[string]string{"username": "admin", "password": "password1"})
	agentTok := env.login(t, "/v1/auth/login", map[string]string{"username": "agent", "password": "password1"})

	// officers are app-only
	status, _ := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"username": "officer", "password": "password1"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	officerTok := env.login(t, "/v1/auth/app/login", map[string]string{"username": "officer", "password": "password1", "device_id": "pixel-7"})

	// Order intake
	order := map[string]any{
		"customer_name":   "Ali Raza",
		"whatsapp_number": "03001234567",
		"address":         "House 4, Street 9",
		"product_name":    "Honda CD 70",
		"total_amount":    "180000",
		"advance_amount":  "30000",
		"monthly_amount":  "12500",
		"months":          12,
		"order_channel":   "whatsapp",
	}
	status, res := env.do(t, http.MethodPost, "/v1/orders", order, agentTok)
	require.Equal(t, http.StatusCreated, status, res.Message)
	created := decode[struct {
		ID       uint   `json:"id"`
		OrderRef string `json:"order_ref"`
		Status   string `json:"status"`
	}](t, res.Data)
	assert.Equal(t, model.OrderStatusNew, created.Status)
	assert.Regexp(t, `^QIST-\d{8}-\d{4}$`, created.OrderRef)

	status, res = env.do(t, http.MethodPost, "/v1/orders", order, agentTok)
	assert.Equal(t, http.StatusConflict, status, res.Message)

	// Assignment is admin-only and queues a notice for the officer
	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/assign", created.ID), map[string]any{"user_id": 2}, agentTok)
	assert.Equal(t, http.StatusForbidden, status)

	var officerID uint
	require.NoError(t, env.db.Model(&model.User{}).Where("username = ?", "officer").Pluck("id", &officerID).Error)
	status, res = env.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/assign", created.ID), map[string]any{"user_id": officerID}, adminTok)
	require.Equal(t, http.StatusOK, status, res.Message)

	queued, err := env.rdb.LLen(ctx, worker.QueueEmail).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued, "officer without a device token is emailed")

	// Field verification
	status, res = env.do(t, http.MethodPost, "/v1/verifications", map[string]any{"order_id": created.ID}, officerTok)
	require.Equal(t, http.StatusCreated, status, res.Message)
	verificationID := decode[struct {
		ID uint `json:"id"`
	}](t, res.Data).ID
	base := fmt.Sprintf("/v1/verifications/%d", verificationID)

	status, _ = env.do(t, http.MethodPost, "/v1/verifications", map[string]any{"order_id": created.ID}, officerTok)
	assert.Equal(t, http.StatusConflict, status)

	status, res = env.do(t, http.MethodPost, base+"/complete", nil, officerTok)
	assert.Equal(t, http.StatusBadRequest, status, "purchaser details are missing")

	status, res = env.do(t, http.MethodPut, base+"/purchaser", map[string]any{"name": "Ali Raza", "cnic_number": "35202-1234567-1"}, officerTok)
	require.Equal(t, http.StatusOK, status, res.Message)

	status, res = env.do(t, http.MethodPost, base+"/locations", map[string]any{"latitude": 31.5204, "longitude": 74.3587}, officerTok)
	require.Equal(t, http.StatusCreated, status, res.Message)

	for _, docType := range []string{model.DocCNICFront, model.DocCNICBack} {
		status, res = env.upload(t, base+"/purchaser/documents", map[string]string{"document_type": docType}, officerTok)
		require.Equal(t, http.StatusCreated, status, res.Message)
	}

	status, res = env.do(t, http.MethodPost, base+"/complete", nil, officerTok)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, res.Message, "signature 0/1")

	status, res = env.upload(t, base+"/signatures", map[string]string{"person_type": model.PersonPurchaser}, officerTok)
	require.Equal(t, http.StatusCreated, status, res.Message)

	status, res = env.do(t, http.MethodPost, base+"/complete", nil, officerTok)
	require.Equal(t, http.StatusOK, status, res.Message)

	// Decision
	status, res = env.do(t, http.MethodPost, base+"/approve", map[string]any{"is_approved": true, "admin_remarks": "  all good  "}, adminTok)
	require.Equal(t, http.StatusOK, status, res.Message)
	decided := decode[struct {
		Status       string  `json:"status"`
		IsApproved   *bool   `json:"is_approved"`
		AdminRemarks *string `json:"admin_remarks"`
	}](t, res.Data)
	assert.Equal(t, model.VerificationStatusCompleted, decided.Status)
	require.NotNil(t, decided.IsApproved)
	assert.True(t, *decided.IsApproved)
	assert.Equal(t, "all good", *decided.AdminRemarks)

	var orderStatus string
	require.NoError(t, env.db.Model(&model.Order{}).Where("id = ?", created.ID).Pluck("status", &orderStatus).Error)
	assert.Equal(t, model.OrderStatusCompleted, orderStatus)

	var purchaser model.PurchaserVerification
	require.NoError(t, env.db.Where("verification_id = ?", verificationID).First(&purchaser).Error)
	assert.NotNil(t, purchaser.CNICFrontURL, "uploads are mirrored onto the purchaser slot")
}

func TestDeviceBindingAcrossLogins(t *testing.T) {
	env := setupTestEnv(t)

	first := env.login(t, "/v1/auth/app/login", map[string]string{"username": "officer", "password": "password1", "device_id": "phone-a"})
	status, _ := env.do(t, http.MethodGet, "/v1/me", nil, first)
	require.Equal(t, http.StatusOK, status)

	second := env.login(t, "/v1/auth/app/login", map[string]string{"username": "officer", "password": "password1", "device_id": "phone-b"})

	status, _ = env.do(t, http.MethodGet, "/v1/me", nil, first)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.do(t, http.MethodGet, "/v1/me", nil, second)
	assert.Equal(t, http.StatusOK, status)
}
