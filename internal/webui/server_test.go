package webui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runsettings/internal/jsonx"
	"runsettings/internal/observability"
	"runsettings/internal/session"
	"runsettings/internal/settings"
	"runsettings/internal/toolpolicy"
	"runsettings/internal/webui/handlers"
)

type envelope struct {
	Success bool             `json:"success"`
	Error   string           `json:"error"`
	Data    jsonx.RawMessage `json:"data"`
}

type testClient struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	header  http.Header
}

func newTestServer(t *testing.T, allowCustom bool) (*Server, *session.Registry, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	promReg := prometheus.NewRegistry()
	metrics := observability.MustNewMetrics(promReg)
	reg := session.NewRegistry(16, time.Hour, session.Config{
		Catalog:           settings.DefaultCatalog(),
		Defaults:          settings.BuiltinDefaults(),
		AllowCustom:       allowCustom,
		DispatchObserver:  metrics,
		ReconcileObserver: metrics,
	})
	t.Cleanup(reg.Purge)

	srv, err := NewServer(Deps{
		Registry: reg,
		Cookie:   ModelCookie{Name: "selected_model", MaxAge: 365 * 24 * time.Hour},
		Policy:   toolpolicy.New(toolpolicy.Config{}, toolpolicy.TokenCounterFunc(toolpolicy.EstimateTokens)),
		Metrics:  metrics,
		Gatherer: promReg,
	}, ServerConfig{EnableCORS: true, MetricsPath: "/metrics", Version: "test"})
	require.NoError(t, err)
	return srv, reg, promReg
}

func newClient(t *testing.T, srv *Server) *testClient {
	return &testClient{t: t, handler: srv.Handler(), cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (c *testClient) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func (c *testClient) view(rec *httptest.ResponseRecorder) settings.View {
	c.t.Helper()
	env := decodeEnvelope(c.t, rec)
	require.True(c.t, env.Success, env.Error)
	var view settings.View
	require.NoError(c.t, jsonx.Unmarshal(env.Data, &view))
	return view
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestFirstRequestCreatesSessionAndPersistsDefaultModel(t *testing.T) {
	srv, reg, _ := newTestServer(t, false)
	client := newClient(t, srv)

	rec := client.do(http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view := client.view(rec)
	assert.Equal(t, "anthropic/claude-sonnet-4", view.SelectedModel)
	assert.Equal(t, settings.Baseline(), view.ToolSettings)
	assert.True(t, view.Reasoning.Visible)

	sessionCookie := responseCookie(rec, SessionCookieName)
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	model := responseCookie(rec, "selected_model")
	require.NotNil(t, model)
	assert.Equal(t, "anthropic/claude-sonnet-4", model.Value)
	assert.Equal(t, "/", model.Path)
	assert.Equal(t, 365*24*60*60, model.MaxAge)
	assert.Equal(t, http.SameSiteStrictMode, model.SameSite)
	assert.False(t, model.Secure)

	rec = client.do(http.MethodGet, "/api/settings", "")
	assert.Nil(t, responseCookie(rec, SessionCookieName), "session cookie is only set once")
	assert.Nil(t, responseCookie(rec, "selected_model"), "unchanged selection is not re-sent")
	assert.Equal(t, 1, reg.Len())
}

func TestSessionSeededFromModelCookie(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)
	client.cookies["selected_model"] = &http.Cookie{Name: "selected_model", Value: "openrouter%2Fgoogle%2Fgemini-2.5-pro"}

	view := client.view(client.do(http.MethodGet, "/api/settings", ""))

	assert.Equal(t, "openrouter/google/gemini-2.5-pro", view.SelectedModel)
	assert.True(t, view.ToolSettings.DeepResearch)
	assert.Equal(t, "", view.PickerValue, "strict picker shows nothing for ids outside the catalog")
}

func TestMalformedModelCookieIsIgnored(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)
	client.cookies["selected_model"] = &http.Cookie{Name: "selected_model", Value: "broken%zz"}

	view := client.view(client.do(http.MethodGet, "/api/settings", ""))
	assert.Equal(t, "anthropic/claude-sonnet-4", view.SelectedModel)
}

func TestModelCookieSecureBehindTLSProxy(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)
	client.header.Set("X-Forwarded-Proto", "https")

	rec := client.do(http.MethodGet, "/api/settings", "")
	model := responseCookie(rec, "selected_model")
	require.NotNil(t, model)
	assert.True(t, model.Secure)
}

func TestSelectModelStrictAndPermissive(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)

	rec := client.do(http.MethodPut, "/api/settings/model", `{"model":"my/custom"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)

	rec = client.do(http.MethodPut, "/api/settings/model", `{"model":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = client.do(http.MethodPut, "/api/settings/model", `{"model":"openai/o3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "openai/o3", client.view(rec).SelectedModel)
	model := responseCookie(rec, "selected_model")
	require.NotNil(t, model)
	assert.Equal(t, "openai/o3", model.Value)

	permissive, _, _ := newTestServer(t, true)
	pc := newClient(t, permissive)
	rec = pc.do(http.MethodPut, "/api/settings/model", `{"model":"my lab/model:beta"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := pc.view(rec)
	assert.Equal(t, "my lab/model:beta", view.PickerValue)
	assert.Equal(t, "my lab/model:beta", view.CustomModel)
	assert.Equal(t, "my%20lab/model:beta", responseCookie(rec, "selected_model").Value)
}

func TestEffortClampOnModelSwitch(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)

	view := client.view(client.do(http.MethodPut, "/api/settings/effort", `{"effort":"high"}`))
	assert.Equal(t, settings.HighEffortTokens, view.ToolSettings.ThinkingTokens)
	assert.Equal(t, settings.EffortHigh, view.Reasoning.Effort)

	view = client.view(client.do(http.MethodPut, "/api/settings/model", `{"model":"openai/o4-mini"}`))
	assert.Equal(t, 0, view.ToolSettings.ThinkingTokens)
	assert.False(t, view.Reasoning.Visible)

	rec := client.do(http.MethodPut, "/api/settings/effort", `{"effort":"medium"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHighEffortRejectedForNonReasoningModel(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)
	client.view(client.do(http.MethodPut, "/api/settings/model", `{"model":"openai/o4-mini"}`))

	rec := client.do(http.MethodPut, "/api/settings/effort", `{"effort":"high"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "reasoning")

	view := client.view(client.do(http.MethodGet, "/api/settings", ""))
	assert.Equal(t, 0, view.ToolSettings.ThinkingTokens)
	assert.False(t, view.Reasoning.Visible)

	view = client.view(client.do(http.MethodPut, "/api/settings/effort", `{"effort":"standard"}`))
	assert.Equal(t, settings.EffortStandard, view.Reasoning.Effort)
}

func TestPatchTools(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)

	view := client.view(client.do(http.MethodPatch, "/api/settings/tools", `{"deep_research":true}`))
	want := settings.Baseline()
	want.DeepResearch = true
	assert.Equal(t, want, view.ToolSettings)

	assert.Equal(t, http.StatusBadRequest, client.do(http.MethodPatch, "/api/settings/tools", `{"teleport":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, client.do(http.MethodPatch, "/api/settings/tools", `{"thinking_tokens":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, client.do(http.MethodPatch, "/api/settings/tools", `not json`).Code)
}

func TestToggleAndReset(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)

	rec := client.do(http.MethodPost, "/api/settings/tools/teleport/toggle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	view := client.view(client.do(http.MethodPost, "/api/settings/tools/browser/toggle", ""))
	assert.False(t, view.ToolSettings.Browser)
	client.do(http.MethodPut, "/api/settings/model", `{"model":"openai/o3"}`)

	rec = client.do(http.MethodPost, "/api/settings/reset", "")
	view = client.view(rec)
	assert.Equal(t, settings.Baseline(), view.ToolSettings)
	assert.Equal(t, "anthropic/claude-sonnet-4", view.SelectedModel)
	model := responseCookie(rec, "selected_model")
	require.NotNil(t, model)
	assert.Equal(t, "anthropic/claude-sonnet-4", model.Value)
}

func TestListModels(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)

	env := decodeEnvelope(t, client.do(http.MethodGet, "/api/models", ""))
	require.True(t, env.Success)
	var models handlers.ModelsResponse
	require.NoError(t, jsonx.Unmarshal(env.Data, &models))

	assert.Equal(t, "anthropic/claude-sonnet-4", models.Selected)
	assert.Len(t, models.Models, settings.DefaultCatalog().Len())
	assert.True(t, models.Models[0].Selected)
	assert.False(t, models.AllowCustom)
}

func TestToolChoice(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)
	client.do(http.MethodPatch, "/api/settings/tools", `{"deep_research":true}`)

	env := decodeEnvelope(t, client.do(http.MethodPost, "/api/settings/tool-choice", `{"prompt":"`+strings.Repeat("research this topic ", 40)+`"}`))
	require.True(t, env.Success, env.Error)
	var resp handlers.ToolChoiceResponse
	require.NoError(t, jsonx.Unmarshal(env.Data, &resp))
	assert.Equal(t, toolpolicy.ToolChoiceRequired, resp.ToolChoice)
	assert.False(t, resp.ParallelToolCalls)
	assert.True(t, resp.ToolArgs.DeepResearch)

	client.do(http.MethodPost, "/api/settings/tools/force_tool/toggle", "")
	env = decodeEnvelope(t, client.do(http.MethodPost, "/api/settings/tool-choice", `{"prompt":"hi"}`))
	require.NoError(t, jsonx.Unmarshal(env.Data, &resp))
	assert.Equal(t, toolpolicy.ToolChoiceAuto, resp.ToolChoice)
}

func TestRejectsNonJSONBodies(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPut, "/api/settings/model", strings.NewReader("model=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	client := newClient(t, srv)

	env := decodeEnvelope(t, client.do(http.MethodGet, "/api/health", ""))
	require.True(t, env.Success)
	var health HealthResponse
	require.NoError(t, jsonx.Unmarshal(env.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Nil(t, client.cookies[SessionCookieName], "health does not open a session")

	client.do(http.MethodGet, "/api/settings", "")
	rec := client.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "runsettings_sessions_created_total 1")
	assert.Contains(t, body, `runsettings_store_dispatches_total{action="set_selected_model"`)
}

func TestStaleSessionCookieStartsFreshSession(t *testing.T) {
	srv, reg, _ := newTestServer(t, false)
	client := newClient(t, srv)
	client.cookies[SessionCookieName] = &http.Cookie{Name: SessionCookieName, Value: "expired"}

	rec := client.do(http.MethodGet, "/api/settings", "")
	fresh := responseCookie(rec, SessionCookieName)
	require.NotNil(t, fresh)
	assert.NotEqual(t, "expired", fresh.Value)
	_, ok := reg.Get(fresh.Value)
	assert.True(t, ok)
}
