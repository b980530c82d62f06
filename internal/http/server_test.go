package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/prefs"
	"gastos/internal/services"
	"gastos/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// memRepo keeps records in memory for handler tests.
type memRepo struct {
	records map[int64]core.Record
	nextID  int64
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[int64]core.Record), nextID: 1}
}

func (m *memRepo) ListAll(_ context.Context) ([]core.Record, error) {
	out := make([]core.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (core.Record, error) {
	r, ok := m.records[id]
	if !ok {
		return core.Record{}, storage.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) Insert(_ context.Context, rec core.Record) (int64, error) {
	rec.ID = m.nextID
	m.nextID++
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memRepo) Update(_ context.Context, id int64, ownerID string, rec core.Record) error {
	existing, ok := m.records[id]
	if !ok || existing.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	rec.ID = id
	m.records[id] = rec
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64, ownerID string) error {
	existing, ok := m.records[id]
	if !ok || existing.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

type testEnv struct {
	srv  *Server
	repo *memRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemRepo()
	service := services.NewRecordService(repo, nil, nil)
	store := prefs.New(filepath.Join(t.TempDir(), "prefs.json"))
	srv := NewServer(":0", service, store, auth.NewVerifier(testSecret))
	t.Cleanup(func() {
		srv.cacheMgr.Stop()
		srv.limiter.Stop()
	})
	return &testEnv{srv: srv, repo: repo}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		r.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	rec := httptest.NewRecorder()
	e.srv.Server.Handler.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/records", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame options header")
	}
}

func TestCreateAndListRecords(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/records", "user-1",
		`{"name":"Supermercado","amount":"45.50","category":"Comida","date":"2026-08-15"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	created := decode[writeResponse](t, rec)
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	rec = e.do(t, http.MethodGet, "/api/records", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	records := decode[[]core.Record](t, rec)
	if len(records) != 1 || records[0].Amount.Cents != 4550 || records[0].OwnerID != "user-1" {
		t.Fatalf("unexpected list: %+v", records)
	}
}

func TestCreateRecordValidation(t *testing.T) {
	e := newTestEnv(t)
	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad amount", `{"name":"x","amount":"abc","category":"Comida","date":"2026-08-15"}`, http.StatusUnprocessableEntity},
		{"unknown category", `{"name":"x","amount":"10","category":"Viajes","date":"2026-08-15"}`, http.StatusUnprocessableEntity},
		{"empty name", `{"name":"","amount":"10","category":"Comida","date":"2026-08-15"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/records", "user-1", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestUpdateForeignRecord(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/records", "user-1",
		`{"name":"Super","amount":"10","category":"Comida","date":"2026-08-15"}`)
	created := decode[writeResponse](t, rec)

	rec = e.do(t, http.MethodPut, "/api/records/1", "user-2",
		`{"name":"Hack","amount":"1","category":"Comida","date":"2026-08-15"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign update: expected 404, got %d", rec.Code)
	}
	_ = created
}

func TestDeleteRecord(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/api/records", "user-1",
		`{"name":"Super","amount":"10","category":"Comida","date":"2026-08-15"}`)

	rec := e.do(t, http.MethodDelete, "/api/records/1", "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, "/api/records/1", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete: expected 404, got %d", rec.Code)
	}
}

func TestMonthReport(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/api/records", "user-1",
		`{"name":"Super","amount":"100","category":"Comida","date":"2026-08-05"}`)
	e.do(t, http.MethodPost, "/api/records", "user-2",
		`{"name":"Verdu","amount":"50","category":"Comida","date":"2026-08-06"}`)

	rec := e.do(t, http.MethodGet, "/api/report?month=2026-08", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var rep struct {
		MyTotal      core.Money `json:"my_total"`
		PartnerTotal core.Money `json:"partner_total"`
		JointTotal   core.Money `json:"joint_total"`
		Balance      float64    `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.MyTotal.Cents != 10000 || rep.PartnerTotal.Cents != 5000 || rep.JointTotal.Cents != 15000 {
		t.Fatalf("unexpected totals: %+v", rep)
	}
	if rep.Balance != 25 {
		t.Fatalf("expected balance 25, got %v", rep.Balance)
	}
}

func TestMonthReportBadMonth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/report?month=agosto", "user-1", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestInstallmentFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/installments", "user-1",
		`{"name":"Sofa","category":"Casa","date":"2026-08-01","target":"1000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create concept: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	created := decode[writeResponse](t, rec)

	// Dry-run validation over the remaining amount.
	rec = e.do(t, http.MethodPost, "/api/installments/1/validate", "user-1", `{"amount":"1500"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	v := decode[validateResponse](t, rec)
	if v.Valid {
		t.Fatal("over-target contribution must be invalid")
	}
	if v.Remaining == nil || v.Remaining.Cents != 100000 {
		t.Fatalf("expected remaining 100000, got %+v", v.Remaining)
	}

	// Exact remaining completes.
	rec = e.do(t, http.MethodPost, "/api/installments/1/validate", "user-1", `{"amount":"1000"}`)
	v = decode[validateResponse](t, rec)
	if !v.Valid || !v.Completes {
		t.Fatalf("exact remaining must validate and complete: %+v", v)
	}

	// Contribute and watch the stats move.
	body := `{"name":"Cuota","amount":"400","category":"Casa","date":"2026-08-10","concept_id":` + jsonInt(created.ID) + `}`
	rec = e.do(t, http.MethodPost, "/api/records", "user-1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("contribution: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodGet, "/api/installments/1", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var stats struct {
		Contributed core.Money `json:"contributed"`
		Remaining   core.Money `json:"remaining"`
		Percentage  float64    `json:"percentage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Contributed.Cents != 40000 || stats.Remaining.Cents != 60000 || stats.Percentage != 40 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Paying the exact remaining flags completion on the write.
	body = `{"name":"Cuota","amount":"600","category":"Casa","date":"2026-08-11","concept_id":` + jsonInt(created.ID) + `}`
	rec = e.do(t, http.MethodPost, "/api/records", "user-1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("final contribution: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if res := decode[writeResponse](t, rec); !res.Completes {
		t.Fatal("final contribution must complete the concept")
	}
}

func TestInstallmentStatsMissing(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/installments/9", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBudgetLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/budgets", "user-1", `{"category":"Comida","limit":"500"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save budget: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodGet, "/api/budgets", "user-1", "")
	budgets := decode[[]core.Budget](t, rec)
	if len(budgets) != 1 || budgets[0].Limit.Cents != 50000 {
		t.Fatalf("unexpected budgets: %+v", budgets)
	}

	// Upsert replaces the existing entry.
	e.do(t, http.MethodPost, "/api/budgets", "user-1", `{"category":"Comida","limit":"600"}`)
	rec = e.do(t, http.MethodGet, "/api/budgets", "user-1", "")
	budgets = decode[[]core.Budget](t, rec)
	if len(budgets) != 1 || budgets[0].Limit.Cents != 60000 {
		t.Fatalf("upsert failed: %+v", budgets)
	}

	rec = e.do(t, http.MethodDelete, "/api/budgets/Comida", "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete budget: expected 204, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, "/api/budgets/Comida", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete: expected 404, got %d", rec.Code)
	}
}

func TestBudgetValidation(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/budgets", "user-1", `{"category":"Viajes","limit":"500"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestThemeRoundtrip(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/prefs/theme", "user-1", "")
	if decode[themePayload](t, rec).DarkMode {
		t.Fatal("expected light default")
	}

	rec = e.do(t, http.MethodPut, "/api/prefs/theme", "user-1", `{"dark_mode":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set theme: expected 200, got %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/prefs/theme", "user-1", "")
	if !decode[themePayload](t, rec).DarkMode {
		t.Fatal("theme flag not persisted")
	}
}

func TestExportCSV(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/api/records", "user-1",
		`{"name":"Super","amount":"45.50","category":"Comida","date":"2026-08-05"}`)

	rec := e.do(t, http.MethodGet, "/api/export/csv?month=2026-08", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "Reporte_Gastos_2026-08.csv") {
		t.Fatalf("unexpected disposition: %q", got)
	}
	if !strings.Contains(rec.Body.String(), "Super,Comida,45.50,Yo") {
		t.Fatalf("unexpected body: %s", rec.Body)
	}
}

func TestExportEmptyMonth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/export/csv?month=2020-01", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty month, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/export/pdf?month=2020-01", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty month, got %d", rec.Code)
	}
}

func TestExportPDF(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/api/records", "user-1",
		`{"name":"Super","amount":"45.50","category":"Comida","date":"2026-08-05"}`)

	rec := e.do(t, http.MethodGet, "/api/export/pdf?month=2026-08", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Fatal("response is not a PDF document")
	}
}

func jsonInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
