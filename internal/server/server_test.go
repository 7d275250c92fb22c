package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/rowmodel/internal/catalog"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/logger"
	"github.com/koustreak/rowmodel/internal/orm"
	"github.com/koustreak/rowmodel/internal/validation"
)

func newTestServer(t *testing.T, logOut *bytes.Buffer) *Server {
	t.Helper()

	base := orm.NewBase()
	base.MustDefine("Address", orm.MustTable("addresses",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("email_address", orm.String{}, orm.NotNull()),
		orm.NewColumn("user_id", orm.Integer{}, orm.References("users", "id")),
	))
	base.MustDefine("User", orm.MustTable("users",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("name", orm.String{}),
	))

	cfg := validation.Config{FromAttributes: true, AliasGenerator: validation.ToCamel}
	c, err := catalog.Build(base, cfg, nil)
	require.NoError(t, err)

	log := logger.Nop()
	if logOut != nil {
		log = logger.New(&logger.Config{Level: "info", Format: "json", Output: logOut})
	}
	return New(c, log)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","models":2}`, rec.Body.String())
}

func TestListSchemas(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/schemas", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []modelSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)

	byName := map[string]modelSummary{}
	for _, m := range got {
		byName[m.Name] = m
	}
	assert.Equal(t, "addresses", byName["Address"].Table)
	assert.Equal(t, []string{"id", "email_address", "user_id"}, byName["Address"].Fields)
	assert.Equal(t, []string{"id", "name"}, byName["User"].Fields)
}

func TestGetSchema(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/schemas/Address", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/schema+json", rec.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Address", doc["title"])
	assert.Equal(t, []any{"id", "emailAddress"}, doc["required"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "emailAddress")
	assert.Contains(t, props, "userId")
}

func TestGetSchema_Unknown(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/schemas/Nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var got errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, errs.ErrKindNotFound.String(), got.Kind)
}

func TestValidate(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/schemas/Address/validate", `{"id": "7", "email_address": "a@b.c"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":7,"email_address":"a@b.c","user_id":null}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/schemas/Address/validate?by_alias=true&exclude_none=true", `{"id": 7, "emailAddress": "a@b.c"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":7,"emailAddress":"a@b.c"}`, rec.Body.String())
}

func TestValidate_Invalid(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodPost, "/schemas/Address/validate", `{"id": "abc"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var got validation.ValidationError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Address", got.Model)
	require.Len(t, got.Errors, 2)
	assert.Equal(t, "int_parsing", got.Errors[0].Type)
	assert.Equal(t, "missing", got.Errors[1].Type)
}

func TestValidate_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/schemas/Address/validate", `{"id": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/schemas/Nope/validate", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/schemas/Address/validate", `"`+strings.Repeat("x", MaxBodyBytes)+`"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/schemas/Address/validate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestLogging(t *testing.T) {
	var out bytes.Buffer
	do(t, newTestServer(t, &out), http.MethodGet, "/schemas/User", "")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry))
	assert.Equal(t, "request", entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/schemas/User", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(errs.ErrKindNotFound))
	assert.Equal(t, http.StatusBadRequest, statusOf(errs.ErrKindInvalidInput))
	assert.Equal(t, http.StatusForbidden, statusOf(errs.ErrKindPermissionDenied))
	assert.Equal(t, http.StatusGatewayTimeout, statusOf(errs.ErrKindTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errs.ErrKindTypeResolution))
}
