package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/db"
	"github.com/sidpg123/filemate-be/internal/http/api/v1/handlers"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/payment"
	"github.com/sidpg123/filemate-be/internal/quota"
	"github.com/sidpg123/filemate-be/internal/ratelimit"
	"github.com/sidpg123/filemate-be/internal/security"
)

type fakeStore struct {
	deleted []string
}

func (f *fakeStore) UploadURL(_ context.Context, key, _ string) (string, error) {
	return "https://s3.test/upload/" + key, nil
}

func (f *fakeStore) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://s3.test/download/" + key, nil
}

func (f *fakeStore) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeCDN struct {
	invalidated [][]string
}

func (f *fakeCDN) SignKey(key string) (string, error) {
	return "https://cdn.test/" + key + "?sig=1", nil
}

func (f *fakeCDN) Invalidate(_ context.Context, keys []string) {
	f.invalidated = append(f.invalidated, keys)
}

type testServer struct {
	engine *gin.Engine
	conn   *gorm.DB
	store  *fakeStore
	cdn    *fakeCDN
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "api.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	store := &fakeStore{}
	cdn := &fakeCDN{}
	engine := gin.New()
	RegisterRoutes(engine, Deps{
		DB:     conn,
		Issuer: security.NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 2*time.Hour),
		Limiter: ratelimit.NewManager(ratelimit.Settings{
			LoginLimit:  100,
			LoginWindow: time.Minute,
		}, nil, nil),
		Ledger:  quota.NewLedger(conn),
		Gateway: payment.NewGateway("rzp_test_key", "rzp_test_secret"),
		Store:   store,
		CDN:     cdn,
	})
	return &testServer{engine: engine, conn: conn, store: store, cdn: cdn}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	parsed := map[string]any{}
	if len(w.Body.Bytes()) > 0 {
		if errUnmarshal := json.Unmarshal(w.Body.Bytes(), &parsed); errUnmarshal != nil {
			t.Fatalf("unmarshal response %q: %v", w.Body.String(), errUnmarshal)
		}
	}
	return w, parsed
}

func (s *testServer) registerAndLogin(t *testing.T, name, email string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":     name,
		"email":    email,
		"password": "super-secret-1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	w, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    email,
		"password": "super-secret-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	token, _ := body["accessToken"].(string)
	if token == "" {
		t.Fatalf("login response missing accessToken: %v", body)
	}
	return token
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Asha", "asha@example.com")

	// Duplicate registration conflicts.
	w, body := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "super-secret-1",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", w.Code)
	}
	if body["error"] != "CONFLICT" {
		t.Fatalf("duplicate register error = %v", body["error"])
	}

	// Wrong password is rejected with the credentials code.
	w, body = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "asha@example.com",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized || body["error"] != "INVALID_CREDENTIALS" {
		t.Fatalf("bad login = %d %v", w.Code, body["error"])
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "asha@example.com" || user["role"] != string(models.RoleCA) {
		t.Fatalf("me user = %v", user)
	}

	// Registration grants the free tier allocation.
	var stored models.User
	if errFind := s.conn.Where("email = ?", "asha@example.com").First(&stored).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if stored.AllocatedStorage <= 0 {
		t.Fatalf("AllocatedStorage = %d, want free tier grant", stored.AllocatedStorage)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/v1/clients", "", nil)
	if w.Code != http.StatusUnauthorized || body["error"] != "MISSING_TOKEN" {
		t.Fatalf("no token = %d %v", w.Code, body["error"])
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/clients", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized || body["error"] != "INVALID_TOKEN" {
		t.Fatalf("garbage token = %d %v", w.Code, body["error"])
	}

	expired := security.NewTokenIssuer("access-secret", "refresh-secret", -time.Minute, time.Hour)
	token, errIssue := expired.IssueAccess(models.Account{ID: 1, Role: models.RoleCA, IsActive: true})
	if errIssue != nil {
		t.Fatalf("issue expired token: %v", errIssue)
	}
	w, body = s.do(t, http.MethodGet, "/api/v1/clients", token, nil)
	if w.Code != http.StatusUnauthorized || body["error"] != "TOKEN_EXPIRED" {
		t.Fatalf("expired token = %d %v", w.Code, body["error"])
	}
}

func (s *testServer) createClient(t *testing.T, token, name, email string) uint64 {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/api/v1/clients", token, gin.H{
		"name":     name,
		"email":    email,
		"password": "client-secret-1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create client status = %d, body %s", w.Code, w.Body.String())
	}
	client, _ := body["client"].(map[string]any)
	id, _ := client["id"].(float64)
	if id == 0 {
		t.Fatalf("create client response missing id: %v", body)
	}
	return uint64(id)
}

func TestClientListPagination(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Ravi", "ravi@example.com")

	for i := 0; i < 5; i++ {
		s.createClient(t, token, fmt.Sprintf("Client %d", i), fmt.Sprintf("client%d@example.com", i))
	}

	seen := map[string]bool{}
	path := "/api/v1/clients?limit=2"
	pages := 0
	for {
		w, body := s.do(t, http.MethodGet, path, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list status = %d, body %s", w.Code, w.Body.String())
		}
		pages++
		data, _ := body["data"].([]any)
		for _, item := range data {
			row, _ := item.(map[string]any)
			email, _ := row["email"].(string)
			if seen[email] {
				t.Fatalf("email %q appeared twice across pages", email)
			}
			seen[email] = true
		}
		hasMore, _ := body["hasMore"].(bool)
		if !hasMore {
			break
		}
		next, _ := body["nextCursor"].(map[string]any)
		at, _ := next["cursorCreatedAt"].(string)
		id, _ := next["cursorId"].(string)
		if at == "" || id == "" {
			t.Fatalf("hasMore with incomplete cursor: %v", next)
		}
		path = "/api/v1/clients?limit=2&cursorCreatedAt=" + at + "&cursorId=" + id
	}
	if len(seen) != 5 {
		t.Fatalf("traversal saw %d clients, want 5", len(seen))
	}
	if pages != 3 {
		t.Fatalf("traversal took %d pages, want 3", pages)
	}
}

func TestClientOwnershipScoping(t *testing.T) {
	s := newTestServer(t)
	tokenA := s.registerAndLogin(t, "Owner", "owner@example.com")
	tokenB := s.registerAndLogin(t, "Other", "other@example.com")

	clientID := s.createClient(t, tokenA, "Scoped", "scoped@example.com")

	w, body := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/%d", clientID), tokenB, nil)
	if w.Code != http.StatusNotFound || body["error"] != "NOT_FOUND" {
		t.Fatalf("cross-tenant read = %d %v", w.Code, body["error"])
	}

	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/%d", clientID), tokenA, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner read status = %d", w.Code)
	}
}

func TestFeeStatistics(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Meera", "meera@example.com")
	clientID := s.createClient(t, token, "Fee Client", "feeclient@example.com")

	base := fmt.Sprintf("/api/v1/clients/%d/fees", clientID)
	past := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	future := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)

	for _, fee := range []gin.H{
		{"amount": 100.0, "dueDate": future, "status": "Pending"},
		{"amount": 200.0, "dueDate": past, "status": "Pending"},
		{"amount": 300.0, "dueDate": past, "status": "Paid"},
	} {
		w, _ := s.do(t, http.MethodPost, base, token, fee)
		if w.Code != http.StatusCreated {
			t.Fatalf("create fee status = %d, body %s", w.Code, w.Body.String())
		}
	}

	w, body := s.do(t, http.MethodGet, base+"/statistics", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("statistics status = %d, body %s", w.Code, w.Body.String())
	}
	summary, _ := body["summary"].(map[string]any)
	checkBucket := func(name string, count float64, amount float64) {
		bucket, _ := summary[name].(map[string]any)
		if bucket["count"] != count || bucket["amount"] != amount {
			t.Fatalf("%s bucket = %v, want count %v amount %v", name, bucket, count, amount)
		}
	}
	checkBucket("pending", 1, 100)
	checkBucket("overdue", 1, 200)
	checkBucket("paid", 1, 300)

	// The overdue row surfaces as Overdue in listings without a write.
	w, body = s.do(t, http.MethodGet, base+"?status=Overdue", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("overdue list status = %d", w.Code)
	}
	data, _ := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("overdue list rows = %d, want 1", len(data))
	}
	row, _ := data[0].(map[string]any)
	if row["effectiveStatus"] != "Overdue" {
		t.Fatalf("effectiveStatus = %v", row["effectiveStatus"])
	}
}

func TestUploadURLQuotaPrecheck(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Quota", "quota@example.com")

	var user models.User
	if errFind := s.conn.Where("email = ?", "quota@example.com").First(&user).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if errUpdate := s.conn.Model(&user).Update("allocated_storage", int64(1000)).Error; errUpdate != nil {
		t.Fatalf("shrink allocation: %v", errUpdate)
	}

	w, body := s.do(t, http.MethodPost, "/api/v1/storage/upload-url", token, gin.H{
		"fileName":    "huge.pdf",
		"contentType": "application/pdf",
		"fileSize":    2000,
	})
	if w.Code != http.StatusBadRequest || body["error"] != "STORAGE_LIMIT_EXCEEDED" {
		t.Fatalf("over-quota precheck = %d %v", w.Code, body["error"])
	}

	w, body = s.do(t, http.MethodPost, "/api/v1/storage/upload-url", token, gin.H{
		"fileName":    "small.pdf",
		"contentType": "application/pdf",
		"fileSize":    500,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("within-quota precheck = %d, body %s", w.Code, w.Body.String())
	}
	if url, _ := body["url"].(string); url == "" {
		t.Fatalf("upload-url response missing url: %v", body)
	}
	if key, _ := body["key"].(string); key == "" {
		t.Fatalf("upload-url response missing key: %v", body)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Docs", "docs@example.com")
	clientID := s.createClient(t, token, "Doc Client", "docclient@example.com")

	base := fmt.Sprintf("/api/v1/clients/%d/documents", clientID)
	w, body := s.do(t, http.MethodPost, base, token, gin.H{
		"fileName": "return.pdf",
		"fileKey":  "uploads/abc-return.pdf",
		"year":     "2025-26",
		"fileSize": 1234,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register doc status = %d, body %s", w.Code, w.Body.String())
	}
	doc, _ := body["document"].(map[string]any)
	docID, _ := doc["id"].(float64)
	if docID == 0 {
		t.Fatalf("register doc response missing id: %v", body)
	}
	// Responses carry signed URLs, never raw keys.
	if key, _ := doc["fileKey"].(string); key == "uploads/abc-return.pdf" {
		t.Fatalf("fileKey was not signed: %v", key)
	}

	w, body = s.do(t, http.MethodGet, base, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list docs status = %d", w.Code)
	}
	if data, _ := body["data"].([]any); len(data) != 1 {
		t.Fatalf("list docs rows = %v, want 1", body["data"])
	}

	// Both the client and the CA pool were charged.
	var client models.Client
	if errFind := s.conn.First(&client, clientID).Error; errFind != nil {
		t.Fatalf("load client: %v", errFind)
	}
	if client.StorageUsed != 1234 {
		t.Fatalf("client StorageUsed = %d, want 1234", client.StorageUsed)
	}

	w, _ = s.do(t, http.MethodPost, "/api/v1/storage/delete-file", token, gin.H{
		"key":      "uploads/abc-return.pdf",
		"fileId":   uint64(docID),
		"clientId": clientID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("delete doc status = %d, body %s", w.Code, w.Body.String())
	}
	if len(s.store.deleted) == 0 || s.store.deleted[0] != "uploads/abc-return.pdf" {
		t.Fatalf("deleted objects = %v", s.store.deleted)
	}
	if len(s.cdn.invalidated) != 1 {
		t.Fatalf("invalidations = %v", s.cdn.invalidated)
	}

	if errFind := s.conn.First(&client, clientID).Error; errFind != nil {
		t.Fatalf("reload client: %v", errFind)
	}
	if client.StorageUsed != 0 {
		t.Fatalf("client StorageUsed after delete = %d, want 0", client.StorageUsed)
	}
}

func TestSubscriptionStatus(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Subs", "subs@example.com")

	statusOf := func() bool {
		w, body := s.do(t, http.MethodGet, "/api/v1/payments/subscription/status", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status endpoint = %d, body %s", w.Code, w.Body.String())
		}
		active, _ := body["hasActiveSubscription"].(bool)
		return active
	}

	if statusOf() {
		t.Fatalf("hasActiveSubscription true without a subscription")
	}

	var user models.User
	if errFind := s.conn.Where("email = ?", "subs@example.com").First(&user).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	var plan models.Plan
	if errPlan := s.conn.First(&plan).Error; errPlan != nil {
		t.Fatalf("load plan: %v", errPlan)
	}
	sub := models.Subscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionStatusActive,
		OrderID:   "order_sub",
		PaymentID: "pay_sub",
		Signature: "sig",
		StartDate: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
	if errCreate := s.conn.Create(&sub).Error; errCreate != nil {
		t.Fatalf("create subscription: %v", errCreate)
	}

	if !statusOf() {
		t.Fatalf("hasActiveSubscription false for an unexpired subscription")
	}

	if errUpdate := s.conn.Model(&sub).Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error; errUpdate != nil {
		t.Fatalf("backdate expiry: %v", errUpdate)
	}
	if statusOf() {
		t.Fatalf("hasActiveSubscription true past expiry")
	}

	// The read flipped the stored row, not just the response.
	var stored models.Subscription
	if errReload := s.conn.First(&stored, sub.ID).Error; errReload != nil {
		t.Fatalf("reload subscription: %v", errReload)
	}
	if stored.Status != models.SubscriptionStatusExpired {
		t.Fatalf("stored status = %q, want %q", stored.Status, models.SubscriptionStatusExpired)
	}
}

func TestDocumentYearFilterIsExact(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Years", "years@example.com")
	clientID := s.createClient(t, token, "Year Client", "yearclient@example.com")

	base := fmt.Sprintf("/api/v1/clients/%d/documents", clientID)
	for i, year := range []string{"2024-25", "2025-26"} {
		w, _ := s.do(t, http.MethodPost, base, token, gin.H{
			"fileName": fmt.Sprintf("return-%d.pdf", i),
			"fileKey":  fmt.Sprintf("uploads/return-%d.pdf", i),
			"year":     year,
			"fileSize": 10,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("register doc status = %d, body %s", w.Code, w.Body.String())
		}
	}

	rowsFor := func(year string) int {
		w, body := s.do(t, http.MethodGet, base+"?year="+year, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list status = %d, body %s", w.Code, w.Body.String())
		}
		data, _ := body["data"].([]any)
		return len(data)
	}

	// A prefix of a year label matches nothing.
	if n := rowsFor("2024"); n != 0 {
		t.Fatalf("year=2024 rows = %d, want 0", n)
	}
	if n := rowsFor("2024-25"); n != 1 {
		t.Fatalf("year=2024-25 rows = %d, want 1", n)
	}
}

func TestClientDashboardRoleScoping(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Role CA", "roleca@example.com")
	s.createClient(t, token, "Portal", "portal@example.com")

	// The CA token cannot enter the client portal.
	w, body := s.do(t, http.MethodGet, "/api/v1/client-dashboard/fees", token, nil)
	if w.Code != http.StatusForbidden || body["error"] != "AUTHORIZATION_ERROR" {
		t.Fatalf("ca in portal = %d %v", w.Code, body["error"])
	}

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "portal@example.com",
		"password": "client-secret-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("client login status = %d, body %s", w.Code, w.Body.String())
	}
	clientToken, _ := body["accessToken"].(string)

	// And the client token cannot touch CA routes.
	w, body = s.do(t, http.MethodGet, "/api/v1/clients", clientToken, nil)
	if w.Code != http.StatusForbidden || body["error"] != "AUTHORIZATION_ERROR" {
		t.Fatalf("client on ca route = %d %v", w.Code, body["error"])
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/client-dashboard/fees/pending-total", clientToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pending total status = %d, body %s", w.Code, w.Body.String())
	}
	if body["totalPending"] != 0.0 {
		t.Fatalf("totalPending = %v, want 0", body["totalPending"])
	}
}

// Keep the handlers package honest about its interfaces.
var (
	_ handlers.ObjectStore = (*fakeStore)(nil)
	_ handlers.CDNSigner   = (*fakeCDN)(nil)
)
