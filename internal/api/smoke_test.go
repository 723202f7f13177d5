// Package api_test runs HTTP-level smoke tests using net/http/httptest
// against a throwaway SQLite store. They verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - JWT auth and role checks (401 / 403)
//   - Domain error mapping (404, 409)
//   - Response format consistency (success/error envelope)
//   - CORS preflight handling
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evetabi/auction/internal/api"
	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/repository"
	"github.com/evetabi/auction/internal/service"
	"github.com/evetabi/auction/internal/testutil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

const testSecret = "test-access-secret-abcdefghijklmnop"

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "development",
			Port: "8080",
		},
		JWT: config.JWTConfig{
			AccessSecret: testSecret,
			AccessTTL:    15 * time.Minute,
		},
		Auction: config.AuctionConfig{
			MaxBidAttempts:         3,
			RetryBaseDelay:         time.Millisecond,
			DefaultDurationMinutes: 60,
		},
	}
}

type testServer struct {
	h        http.Handler
	db       *sqlx.DB
	verifier *auth.Verifier
}

// buildTestRouter creates a Gin engine over a real service and SQLite store.
func buildTestRouter(t *testing.T) *testServer {
	t.Helper()
	cfg := testCfg()
	db := testutil.NewDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewAuctionService(db,
		repository.NewAuctionRepository(db), repository.NewBidRepository(db), cfg, logger)
	verifier := auth.NewVerifier(cfg.JWT.AccessSecret, cfg.JWT.AccessTTL)

	r := api.SetupRouter(api.RouterDeps{
		AuctionSvc: svc,
		Verifier:   verifier,
		Hub:        nil,
		Cfg:        cfg,
		Logger:     logger,
	})
	return &testServer{h: r, db: db, verifier: verifier}
}

func (s *testServer) token(t *testing.T, role domain.Role) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	tok, err := s.verifier.Issue(domain.Principal{UserID: id, Role: role, DisplayName: string(role) + "-user"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return id, tok
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v, body: %s", err, rr.Body.String())
	}
	return m
}

func wantCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, status, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
	if body["code"] != code {
		t.Errorf("code = %v, want %s", body["code"], code)
	}
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	s := buildTestRouter(t)
	rr := do(t, s.h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

// ── Public reads ──────────────────────────────────────────────────────────────

func TestListAuctions_IsPublic(t *testing.T) {
	s := buildTestRouter(t)
	testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())

	rr := do(t, s.h, http.MethodGet, "/api/auctions?status=active", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/auctions = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	meta, _ := body["meta"].(map[string]interface{})
	if meta["total"] != float64(1) {
		t.Errorf("meta.total = %v, want 1", meta["total"])
	}
}

func TestListAuctions_BySeller(t *testing.T) {
	s := buildTestRouter(t)
	mine := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())

	rr := do(t, s.h, http.MethodGet, "/api/auctions?seller_id="+mine.SellerID.String(), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/auctions?seller_id = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	meta, _ := body["meta"].(map[string]interface{})
	if meta["total"] != float64(1) {
		t.Errorf("meta.total = %v, want 1", meta["total"])
	}

	rr = do(t, s.h, http.MethodGet, "/api/auctions?seller_id=nope", "", nil)
	wantCode(t, rr, http.StatusBadRequest, "ERR_INVALID_AUCTION")
}

func TestListAuctions_UnknownStatus(t *testing.T) {
	s := buildTestRouter(t)
	rr := do(t, s.h, http.MethodGet, "/api/auctions?status=archived", "", nil)
	wantCode(t, rr, http.StatusBadRequest, "ERR_INVALID_AUCTION")
}

func TestGetAuction_NotFound(t *testing.T) {
	s := buildTestRouter(t)
	rr := do(t, s.h, http.MethodGet, "/api/auctions/"+uuid.NewString(), "", nil)
	wantCode(t, rr, http.StatusNotFound, "ERR_AUCTION_NOT_FOUND")
}

func TestGetAuction_BadID(t *testing.T) {
	s := buildTestRouter(t)
	rr := do(t, s.h, http.MethodGet, "/api/auctions/not-a-uuid", "", nil)
	wantCode(t, rr, http.StatusBadRequest, "ERR_INVALID_AUCTION_ID")
}

func TestWinner_LiveAuction(t *testing.T) {
	s := buildTestRouter(t)
	a := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	rr := do(t, s.h, http.MethodGet, "/api/auctions/"+a.ID.String()+"/winner", "", nil)
	wantCode(t, rr, http.StatusConflict, "ERR_AUCTION_NOT_COMPLETED")
}

// ── PlaceBid ──────────────────────────────────────────────────────────────────

func TestPlaceBid_NoToken_Returns401(t *testing.T) {
	s := buildTestRouter(t)
	a := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	rr := do(t, s.h, http.MethodPost, "/api/auctions/"+a.ID.String()+"/bids", `{"amount":"15.00"}`, nil)
	wantCode(t, rr, http.StatusUnauthorized, "ERR_UNAUTHORIZED")
}

func TestPlaceBid_InvalidToken_Returns401(t *testing.T) {
	s := buildTestRouter(t)
	a := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	rr := do(t, s.h, http.MethodPost, "/api/auctions/"+a.ID.String()+"/bids", `{"amount":"15.00"}`,
		bearer("this.is.not.valid"))
	wantCode(t, rr, http.StatusUnauthorized, "ERR_TOKEN_INVALID")
}

func TestPlaceBid_SellerForbidden(t *testing.T) {
	s := buildTestRouter(t)
	a := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	_, tok := s.token(t, domain.RoleSeller)
	rr := do(t, s.h, http.MethodPost, "/api/auctions/"+a.ID.String()+"/bids", `{"amount":"15.00"}`, bearer(tok))
	wantCode(t, rr, http.StatusForbidden, "ERR_FORBIDDEN")
}

func TestPlaceBid_Validation(t *testing.T) {
	s := buildTestRouter(t)
	a := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	_, tok := s.token(t, domain.RoleBuyer)
	path := "/api/auctions/" + a.ID.String() + "/bids"

	wantCode(t, do(t, s.h, http.MethodPost, path, `{}`, bearer(tok)), http.StatusBadRequest, "ERR_VALIDATION")
	wantCode(t, do(t, s.h, http.MethodPost, path, `{"amount":"abc"}`, bearer(tok)), http.StatusBadRequest, "ERR_INVALID_AMOUNT")
	wantCode(t, do(t, s.h, http.MethodPost, path, `{"amount":"-5"}`, bearer(tok)), http.StatusBadRequest, "ERR_INVALID_AMOUNT")
	wantCode(t, do(t, s.h, http.MethodPost, path, `{"amount":"10.001"}`, bearer(tok)), http.StatusBadRequest, "ERR_INVALID_AMOUNT")
}

func TestPlaceBid_AcceptThenTooLow(t *testing.T) {
	s := buildTestRouter(t)
	a := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	buyerID, tok := s.token(t, domain.RoleBuyer)
	path := "/api/auctions/" + a.ID.String() + "/bids"

	rr := do(t, s.h, http.MethodPost, path, `{"amount":"15.00"}`, bearer(tok))
	if rr.Code != http.StatusCreated {
		t.Fatalf("first bid = %d, want 201, body: %s", rr.Code, rr.Body.String())
	}
	data, _ := decodeBody(t, rr)["data"].(map[string]interface{})
	if data["total_bids"] != float64(1) {
		t.Errorf("total_bids = %v, want 1", data["total_bids"])
	}

	rr = do(t, s.h, http.MethodPost, path, `{"amount":"12.00"}`, bearer(tok))
	wantCode(t, rr, http.StatusConflict, "ERR_BID_TOO_LOW")

	rr = do(t, s.h, http.MethodGet, "/api/me/bids", "", bearer(tok))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/me/bids = %d, want 200", rr.Code)
	}
	bids, _ := decodeBody(t, rr)["data"].([]interface{})
	if len(bids) != 1 {
		t.Fatalf("my bids = %d, want 1", len(bids))
	}
	if bid := bids[0].(map[string]interface{}); bid["bidder_id"] != buyerID.String() || bid["bidder_name"] != "buyer-user" {
		t.Errorf("bid not attributed to caller: %v", bid)
	}
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
	s := buildTestRouter(t)
	_, tok := s.token(t, domain.RoleBuyer)
	rr := do(t, s.h, http.MethodPost, "/api/auctions/"+uuid.NewString()+"/bids", `{"amount":"15.00"}`, bearer(tok))
	wantCode(t, rr, http.StatusNotFound, "ERR_AUCTION_NOT_FOUND")
}

// ── EndAuction ────────────────────────────────────────────────────────────────

func TestEndAuction_OwnershipAndTwice(t *testing.T) {
	s := buildTestRouter(t)
	a := testutil.SeedAuction(t, s.db, "10", 5, time.Now().UTC())
	path := "/api/auctions/" + a.ID.String() + "/end"

	_, stranger := s.token(t, domain.RoleSeller)
	wantCode(t, do(t, s.h, http.MethodPost, path, "", bearer(stranger)), http.StatusForbidden, "ERR_FORBIDDEN")

	_, buyer := s.token(t, domain.RoleBuyer)
	wantCode(t, do(t, s.h, http.MethodPost, path, "", bearer(buyer)), http.StatusForbidden, "ERR_FORBIDDEN")

	owner, err := s.verifier.Issue(domain.Principal{UserID: a.SellerID, Role: domain.RoleSeller})
	if err != nil {
		t.Fatal(err)
	}
	rr := do(t, s.h, http.MethodPost, path, "", bearer(owner))
	if rr.Code != http.StatusOK {
		t.Fatalf("owner end = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}

	_, admin := s.token(t, domain.RoleAdmin)
	wantCode(t, do(t, s.h, http.MethodPost, path, "", bearer(admin)), http.StatusConflict, "ERR_ALREADY_COMPLETED")

	rr = do(t, s.h, http.MethodGet, "/api/auctions/"+a.ID.String()+"/winner", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("winner after end = %d, want 200", rr.Code)
	}
	data, _ := decodeBody(t, rr)["data"].(map[string]interface{})
	if data["has_winner"] != false {
		t.Errorf("has_winner = %v, want false", data["has_winner"])
	}
}

func TestMyBids_NoToken_Returns401(t *testing.T) {
	s := buildTestRouter(t)
	rr := do(t, s.h, http.MethodGet, "/api/me/bids", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/me/bids without token = %d, want 401", rr.Code)
	}
}

// ── CORS headers ──────────────────────────────────────────────────────────────

func TestCORSOptionsRequest(t *testing.T) {
	s := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auctions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("OPTIONS = %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing Access-Control-Allow-Methods header")
	}
}

func TestCORSAllowOrigin_Dev(t *testing.T) {
	s := buildTestRouter(t)
	rr := do(t, s.h, http.MethodGet, "/health", "", map[string]string{"Origin": "http://localhost:3000"})
	// In dev mode, CORS origin should be wildcard
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Dev CORS origin = %q, want *", origin)
	}
}
