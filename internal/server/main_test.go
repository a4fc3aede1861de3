package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"estate/internal/config"
	"estate/internal/database"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Sup3r-Secret!pass"

type testServer struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

// newTestServer wires a full server against a throwaway sqlite database.
func newTestServer(t *testing.T, tweak ...func(*config.Config)) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := &config.Config{
		Env:            "test",
		Port:           "0",
		JWTSecret:      "server-test-secret-0123456789abcdef0123456789",
		JWTTTLMinutes:  60,
		DBDriver:       database.DriverSQLite,
		DBSQLitePath:   filepath.Join(t.TempDir(), "server.db"),
		AllowedOrigins: "http://localhost:5173",
		FrontendURL:    "https://estate.example",
		MailDriver:     "log",
	}
	for _, f := range tweak {
		f(cfg)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)

	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return &testServer{srv: srv, app: srv.NewApp(), db: db}
}

type apiResponse struct {
	Status  int             `json:"-"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Total   *int64          `json:"total"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := apiResponse{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}

func decode[T any](t *testing.T, r apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v), string(r.Data))
	return v
}

type account struct {
	ID       uuid.UUID
	Username string
	Token    string
}

// register signs up, activates and logs in a fresh account.
func (ts *testServer) register(t *testing.T) account {
	t.Helper()
	username := "u" + gofakeit.LetterN(10)
	res := ts.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"username":   username,
		"first_name": gofakeit.FirstName(),
		"last_name":  gofakeit.LastName(),
		"email":      username + "@example.com",
		"password":   testPassword,
	})
	require.Equal(t, http.StatusOK, res.Status, res.Error)
	user := decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, res)

	res = ts.do(t, http.MethodPut, "/api/users/activate/"+user.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, res.Status, res.Error)

	res = ts.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, res.Status, res.Error)
	login := decode[struct {
		Token string `json:"token"`
	}](t, res)

	return account{ID: user.ID, Username: username, Token: login.Token}
}
