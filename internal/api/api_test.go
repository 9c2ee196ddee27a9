package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/flipdesk/internal/conversion"
	"github.com/starford/flipdesk/internal/crm"
	"github.com/starford/flipdesk/internal/documents"
	"github.com/starford/flipdesk/internal/search"
	"github.com/starford/flipdesk/internal/store"
	"github.com/starford/flipdesk/internal/testutil"
)

type testEnv struct {
	db     *store.DB
	svc    *crm.Service
	router http.Handler
}

// newTestEnv sets up a temp SQLite store, document root and router.
// A nil runner uses a real conversion worker over the store.
func newTestEnv(t *testing.T, auth AuthSettings, runner ConversionRunner) testEnv {
	t.Helper()
	db := testutil.TestStore(t)
	_, fs := testutil.TestFS(t)

	svc := crm.NewService(db)
	if runner == nil {
		runner = conversion.New(db)
	}
	h := NewHandler(svc, search.New(db), runner, 2)
	router := NewRouter(h, documents.NewStore(fs, svc), auth, nil)
	return testEnv{db: db, svc: svc, router: router}
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, w.Body.String())
	}
	return v
}

func TestLeadCRUD(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)

	w := do(t, env.router, http.MethodPost, "/leads", map[string]any{
		"address": "12 Oak Ave", "ownerName": "Pat Doe", "status": " Negotiation ", "estimatedValue": 180000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}](t, w)
	if created.Status != "negotiation" {
		t.Errorf("status = %q, want normalized negotiation", created.Status)
	}

	w = do(t, env.router, http.MethodGet, fmt.Sprintf("/leads/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = do(t, env.router, http.MethodPut, fmt.Sprintf("/leads/%d", created.ID), map[string]any{
		"address": "12 Oak Ave", "status": "contacted",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, env.router, http.MethodGet, "/leads?status=contacted", nil)
	list := decode[LeadListResponse](t, w)
	if list.Total != 1 || len(list.Leads) != 1 {
		t.Fatalf("list = %+v, want one contacted lead", list)
	}

	w = do(t, env.router, http.MethodDelete, fmt.Sprintf("/leads/%d", created.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, env.router, http.MethodGet, fmt.Sprintf("/leads/%d", created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestCreateLead_Validation(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)

	tests := []struct {
		name string
		body any
	}{
		{"missing address", map[string]any{"status": "new"}},
		{"unknown status", map[string]any{"address": "1 A St", "status": "maybe"}},
		{"bad email", map[string]any{"address": "1 A St", "ownerEmail": "nope"}},
		{"negative value", map[string]any{"address": "1 A St", "estimatedValue": -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.router, http.MethodPost, "/leads", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", w.Code)
	}
}

func TestInvalidID(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)
	for _, target := range []string{"/leads/abc", "/opportunities/0", "/contacts/-1", "/contracts/x"} {
		w := do(t, env.router, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", target, w.Code)
		}
	}
}

func TestInvalidPaging(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)
	targets := []string{
		"/search?q=maple&limit=abc",
		"/search?q=maple&offset=1.5",
		"/leads?limit=ten",
		"/opportunities?offset=x",
		"/contacts?limit=-",
		"/contracts?opportunityId=abc",
		"/activities?offset=%20",
	}
	for _, target := range targets {
		w := do(t, env.router, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", target, w.Code)
		}
	}

	w := do(t, env.router, http.MethodGet, "/leads?limit=5&offset=0", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /leads with numeric paging = %d, want 200", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)
	for _, target := range []string{"/leads/99", "/opportunities/99", "/contacts/99", "/contracts/99"} {
		w := do(t, env.router, http.MethodGet, target, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, w.Code)
		}
	}
	w := do(t, env.router, http.MethodPut, "/contacts/99", map[string]any{"name": "Ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("PUT missing contact = %d, want 404", w.Code)
	}
}

func TestContractReferences(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)

	w := do(t, env.router, http.MethodPost, "/contracts", map[string]any{"title": "Assignment", "propertyId": 404})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown property = %d, want 400 (body %s)", w.Code, w.Body.String())
	}

	w = do(t, env.router, http.MethodPost, "/opportunities", map[string]any{"address": "9 Elm St", "price": 99000})
	if w.Code != http.StatusCreated {
		t.Fatalf("create opportunity = %d, body = %s", w.Code, w.Body.String())
	}
	opp := decode[struct {
		ID int64 `json:"id"`
	}](t, w)

	w = do(t, env.router, http.MethodPost, "/contracts", map[string]any{"title": "Assignment", "propertyId": opp.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create contract = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, env.router, http.MethodGet, fmt.Sprintf("/contracts?opportunityId=%d", opp.ID), nil)
	list := decode[ContractListResponse](t, w)
	if list.Total != 1 || list.Contracts[0].Status != "draft" {
		t.Fatalf("contracts = %+v, want one draft", list)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)
	testutil.SeedLead(t, env.db, "1 Maple Rd", "new", nil)
	testutil.SeedLead(t, env.db, "2 Maple Rd", "new", nil)
	testutil.SeedLead(t, env.db, "3 Maple Rd", "new", nil)

	w := do(t, env.router, http.MethodGet, "/search?q=maple&limit=2&offset=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[SearchResponse](t, w)
	if res.Counts.Total != 3 || res.Counts.Leads != 3 {
		t.Errorf("counts = %+v, want total 3", res.Counts)
	}
	if len(res.Items) != 2 || res.Items[0].Title != "2 Maple Rd" {
		t.Fatalf("items = %+v, want 2 Maple Rd first", res.Items)
	}
	if res.Items[0].Type != search.TypeLead || res.Items[0].Path == "" {
		t.Errorf("item = %+v", res.Items[0])
	}
}

func TestSearchShortQuery(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)
	testutil.SeedLead(t, env.db, "1 Maple Rd", "new", nil)

	for _, target := range []string{"/search", "/search?q=m", "/search?q=%20%20"} {
		w := do(t, env.router, http.MethodGet, target, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", target, w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte(`"results":[]`)) {
			t.Errorf("%s body = %s, want empty results array", target, w.Body.String())
		}
	}
}

func TestRunConversion(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)
	lead := testutil.SeedLead(t, env.db, "7 Birch Ln", "negotiation", testutil.Money(210000))
	testutil.SeedLead(t, env.db, "8 Birch Ln", "new", nil)

	w := do(t, env.router, http.MethodPost, "/conversion/run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", w.Code, w.Body.String())
	}
	report := decode[conversion.Report](t, w)
	if report.Converted != 1 || report.Trigger != conversion.TriggerManual {
		t.Fatalf("report = %+v, want one manual conversion", report)
	}
	if report.Conversions[0].LeadID != lead.ID {
		t.Errorf("converted lead = %d, want %d", report.Conversions[0].LeadID, lead.ID)
	}

	w = do(t, env.router, http.MethodPost, "/conversion/run", nil)
	again := decode[conversion.Report](t, w)
	if again.Converted != 0 || again.Skipped != 1 {
		t.Errorf("second run = %+v, want the lead skipped", again)
	}

	w = do(t, env.router, http.MethodGet, "/activities?action=auto_converted_lead", nil)
	acts := decode[ActivityListResponse](t, w)
	if acts.Total != 1 {
		t.Errorf("activities total = %d, want 1", acts.Total)
	}
}

type busyRunner struct{ err error }

func (b busyRunner) RunOnce(context.Context, string) (conversion.Report, error) {
	return conversion.Report{}, b.err
}

func TestRunConversion_Busy(t *testing.T) {
	for _, err := range []error{conversion.ErrRunInProgress, conversion.ErrLeaseHeld} {
		env := newTestEnv(t, AuthSettings{}, busyRunner{err: err})
		w := do(t, env.router, http.MethodPost, "/conversion/run", nil)
		if w.Code != http.StatusConflict {
			t.Errorf("%v: status = %d, want 409", err, w.Code)
		}
	}
}

func TestRunConversion_Disabled(t *testing.T) {
	db := testutil.TestStore(t)
	_, fs := testutil.TestFS(t)
	svc := crm.NewService(db)
	router := NewRouter(NewHandler(svc, search.New(db), nil, 2), documents.NewStore(fs, svc), AuthSettings{}, nil)

	w := do(t, router, http.MethodPost, "/conversion/run", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_Token(t *testing.T) {
	env := newTestEnv(t, AuthSettings{Mode: AuthToken, Token: "secret"}, nil)

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"valid", []string{"Authorization", "Bearer secret"}, http.StatusOK},
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"not bearer", []string{"Authorization", "Basic secret"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.router, http.MethodGet, "/leads", nil, tt.header...)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func signJWT(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestAuthMiddleware_JWT(t *testing.T) {
	auth := AuthSettings{Mode: AuthJWT, JWTSecret: "hmac-secret", JWTIssuer: "flipdesk"}
	env := newTestEnv(t, auth, nil)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", signJWT(t, "hmac-secret", jwt.RegisteredClaims{Subject: "agent-1", Issuer: "flipdesk", ExpiresAt: exp}), http.StatusOK},
		{"wrong secret", signJWT(t, "other", jwt.RegisteredClaims{Subject: "agent-1", Issuer: "flipdesk", ExpiresAt: exp}), http.StatusUnauthorized},
		{"wrong issuer", signJWT(t, "hmac-secret", jwt.RegisteredClaims{Subject: "agent-1", Issuer: "else", ExpiresAt: exp}), http.StatusUnauthorized},
		{"expired", signJWT(t, "hmac-secret", jwt.RegisteredClaims{Subject: "agent-1", Issuer: "flipdesk", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}), http.StatusUnauthorized},
		{"no subject", signJWT(t, "hmac-secret", jwt.RegisteredClaims{Issuer: "flipdesk", ExpiresAt: exp}), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.router, http.MethodGet, "/contacts", nil, "Authorization", "Bearer "+tt.token)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_Subject(t *testing.T) {
	var got string
	h := AuthMiddleware(AuthSettings{Mode: AuthJWT, JWTSecret: "s"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Subject(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signJWT(t, "s", jwt.RegisteredClaims{Subject: "agent-7"}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "agent-7" {
		t.Errorf("Subject = %q, want agent-7", got)
	}
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestContractDocument(t *testing.T) {
	env := newTestEnv(t, AuthSettings{}, nil)
	w := do(t, env.router, http.MethodPost, "/contracts", map[string]any{"title": "Purchase agreement"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create contract = %d", w.Code)
	}
	c := decode[struct {
		ID int64 `json:"id"`
	}](t, w)
	target := fmt.Sprintf("/contracts/%d/document", c.ID)

	w = do(t, env.router, http.MethodGet, target, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("download before upload = %d, want 404", w.Code)
	}

	pdf := []byte("%PDF-1.4\n% signed\n")
	body, ctype := multipartBody(t, "signed deal.pdf", pdf)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", ctype)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	up := decode[DocumentUploadResponse](t, w)
	if up.Filename != "signed_deal.pdf" || up.Size != int64(len(pdf)) || up.URL != "/api"+target {
		t.Errorf("upload response = %+v", up)
	}

	w = do(t, env.router, http.MethodGet, target, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download = %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), pdf) {
		t.Errorf("download body = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}

	body, ctype = multipartBody(t, "fake.pdf", []byte("just text"))
	req = httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", ctype)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("mismatched content = %d, want 400", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, target, bytes.NewReader([]byte("x")))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-multipart upload = %d, want 400", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	db := testutil.TestStore(t)
	_, fs := testutil.TestFS(t)
	svc := crm.NewService(db)
	sse := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router := NewRouter(NewHandler(svc, search.New(db), nil, 2), documents.NewStore(fs, svc),
		AuthSettings{Mode: AuthToken, Token: "tok"}, sse)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
	w = do(t, router, http.MethodGet, "/events", nil, "Authorization", "Bearer tok")
	if w.Code != http.StatusOK {
		t.Errorf("SSE with token = %d, want 200", w.Code)
	}
}
