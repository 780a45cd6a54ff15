package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/models"
)

// fakeAPI serves the auth and health endpoints with canned replies.
type fakeAPI struct {
	mu sync.Mutex

	info         models.SessionInfo
	infoStatus   int
	refreshFails bool
	logoutStatus int
	healthStatus int

	hits       map[string]int
	lastAuth   string
	lastIdem   string
	issuedWith models.IssueRequest
}

var testUser = models.User{ID: uuid.New(), Email: "staff@example.com", FullName: "موظف", Role: models.RoleUser, IsActive: true}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{hits: map[string]int{}, healthStatus: http.StatusOK}
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) hit(r *http.Request) {
	f.mu.Lock()
	f.hits[r.Method+" "+r.URL.Path]++
	f.lastAuth = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Unlock()
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeAPI) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			writeFail(w, http.StatusUnauthorized, "auth", "invalid_credentials", "بيانات الدخول غير صحيحة")
			return
		}
		writeData(w, http.StatusOK, models.Session{Token: "tok-login", ExpiresAt: time.Now().Add(time.Hour), User: testUser})
	})
	r.Post("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		f.mu.Lock()
		status := f.logoutStatus
		f.mu.Unlock()
		if status >= http.StatusBadRequest {
			writeFail(w, status, "server", "server", "internal server error")
			return
		}
		writeData(w, http.StatusOK, nil)
	})
	r.Post("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		f.mu.Lock()
		fails := f.refreshFails
		f.mu.Unlock()
		if fails {
			writeFail(w, http.StatusUnauthorized, "auth", "session_expired", "انتهت الجلسة")
			return
		}
		writeData(w, http.StatusOK, models.Session{Token: "tok-refreshed", ExpiresAt: time.Now().Add(time.Hour), User: testUser})
	})
	r.Get("/api/v1/auth/session", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		f.mu.Lock()
		info, status := f.info, f.infoStatus
		f.mu.Unlock()
		if status >= http.StatusBadRequest {
			kind := "server"
			if status == http.StatusServiceUnavailable {
				kind = "network"
			}
			writeFail(w, status, kind, kind, "service unavailable")
			return
		}
		writeData(w, http.StatusOK, info)
	})
	r.Post("/api/v1/certificates", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		var req models.IssueRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.lastIdem = r.Header.Get(idempotencyHeader)
		f.issuedWith = req
		f.mu.Unlock()
		writeData(w, http.StatusCreated, map[string]any{
			"message": "تم إنشاء شهادة الضمان بنجاح",
			"result":  models.IssueResult{Customer: models.Customer{Name: req.CustomerName}},
		})
	})
	r.Get("/api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		writeFail(w, http.StatusNotFound, "server", "product_not_found", "المنتج غير موجود")
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		f.mu.Lock()
		status := f.healthStatus
		f.mu.Unlock()
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"status":"Error","data":{"status":"unavailable"}}`))
			return
		}
		writeData(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	return r
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "data": data})
}

func writeFail(w http.ResponseWriter, status int, kind, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "Error", "kind": kind, "code": code, "error": msg})
}

func validInfo(remaining time.Duration) models.SessionInfo {
	u := testUser
	return models.SessionInfo{
		Valid:            true,
		User:             &u,
		ExpiresAt:        time.Now().Add(remaining),
		RemainingSeconds: int64(remaining / time.Second),
		ShouldRefresh:    remaining < RefreshThreshold,
	}
}
