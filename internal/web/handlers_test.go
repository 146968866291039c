package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/liquidaciones/internal/config"
	"github.com/JonMunkholm/liquidaciones/internal/core"
)

var fixtureFiles = map[core.TableKind][2]string{
	core.TableShorts:        {"cortos.csv", "id,titulo\n1,Foo\n2,Bar\n"},
	core.TableRegistrations: {"inscripciones.csv", "corto_id,fee_amount,fee_cobrado\n1,5000,0\n2,1000,1\n"},
	core.TableSales:         {"ventas.csv", "id,corto_id\n10,2\n"},
	core.TableSettlements:   {"liquidaciones.csv", "venta_id;importe_liquidar;liquidado\n10;30250;0\n"},
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Rate.Enabled = false

	svc, err := core.NewService(cfg)
	require.NoError(t, err)
	return NewServer(svc, cfg)
}

// uploadRequest builds a multipart request with the given tables.
func uploadRequest(t *testing.T, path string, kinds ...core.TableKind) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, kind := range kinds {
		f := fixtureFiles[kind]
		part, err := mw.CreateFormFile(string(kind), f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload the four files")
	assert.Contains(t, rec.Body.String(), `name="settlements"`)
	assert.NotContains(t, rec.Body.String(), "/reconcile/database", "database form hidden without a database")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestReconcile_RedirectsToReport(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/reconcile", core.TableKinds...))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/report/"))

	page := serve(s, httptest.NewRequest(http.MethodGet, location, nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Bar")
	assert.Contains(t, page.Body.String(), "302,50 €")
}

func TestReconcile_MissingFilesShowsGuidance(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/reconcile", core.TableShorts, core.TableSales))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing: registrations, settlements.")
}

func TestReconcile_MissingColumnShowsError(t *testing.T) {
	s := newTestServer(t)
	orig := fixtureFiles[core.TableSales]
	fixtureFiles[core.TableSales] = [2]string{"ventas.csv", "id\n10\n"}
	defer func() { fixtureFiles[core.TableSales] = orig }()

	rec := serve(s, uploadRequest(t, "/reconcile", core.TableKinds...))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "A required column is missing")
	assert.Contains(t, rec.Body.String(), "VAL004")
}

func TestAPIReconcile(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/api/reconcile", core.TableKinds...))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Balances, 2)
	assert.Equal(t, "Bar", resp.Balances[0].Title)
	assert.Equal(t, "302.50", resp.Balances[0].Net)
	assert.Equal(t, "positive", resp.Balances[0].Tone)
	assert.Equal(t, "-50.00", resp.Balances[1].Net)
	assert.Equal(t, "302.50", resp.Summary.CashOut)
	assert.Equal(t, "50.00", resp.Summary.OutstandingDebt)

	again := serve(s, httptest.NewRequest(http.MethodGet, "/api/report/"+resp.ID, nil))
	assert.Equal(t, http.StatusOK, again.Code)
}

func TestAPIReconcile_MissingTables(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/api/reconcile", core.TableShorts))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RPT001", resp.Code)
	assert.Equal(t, []core.TableKind{core.TableRegistrations, core.TableSales, core.TableSettlements}, resp.Missing)
}

func TestAPIReconcileDatabase_NotConfigured(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/reconcile/database", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DB001")
}

func TestReport_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/report/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Report not found")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/report/unknown/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "RPT002")
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, uploadRequest(t, "/api/reconcile", core.TableKinds...))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	base := "/api/report/" + resp.ID + "/export"

	t.Run("default dialect", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, base, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="balance_liquidaciones_real.csv"`, rec.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "ID,Título,Credit,Debt,Net\n2,Bar,302.50"))
	})

	t.Run("spreadsheet dialect", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, base+"?format=csv-es", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBFID;Título"))
		assert.Contains(t, rec.Body.String(), "302,50")
	})

	t.Run("xlsx", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, base+"?format=xlsx", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

		f, err := excelize.OpenReader(rec.Body)
		require.NoError(t, err)
		defer f.Close()
		name, err := f.GetCellValue("Balance", "B2")
		require.NoError(t, err)
		assert.Equal(t, "Bar", name)
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, base+"?format=pdf", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "RPT004")
	})
}

func TestListTables(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/tables", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var tables []struct {
		Kind    core.TableKind `json:"kind"`
		Columns []string       `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tables))
	require.Len(t, tables, 4)
	assert.Equal(t, core.TableSettlements, tables[3].Kind)
	assert.Equal(t, []string{"venta_id", "importe_liquidar", "liquidado"}, tables[3].Columns)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"database":false`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.MissingTablesError{Missing: core.TableKinds}, http.StatusUnprocessableEntity},
		{core.ErrReportNotFound, http.StatusNotFound},
		{core.ErrTooManyRuns, http.StatusServiceUnavailable},
		{core.ErrEmptyFile, http.StatusBadRequest},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}
