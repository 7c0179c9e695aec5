package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/internal/adapters/cache"
	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/adapters/events"
	"github.com/zatekoja/serviceportal/internal/api/handlers"
	"github.com/zatekoja/serviceportal/internal/api/session"
	"github.com/zatekoja/serviceportal/internal/api/views"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	"github.com/zatekoja/serviceportal/internal/testutil"
	"github.com/zatekoja/serviceportal/pkg/config"
)

type testApp struct {
	server *httptest.Server
	db     *sqldb.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	client := testutil.NewSQLiteClient(t)
	store := cache.NewMemoryAdapter()
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { bus.Close() })

	baseServices := database.NewServiceAdapter(client)
	require.NoError(t, services.NewBootstrapService(migrations.New(client), baseServices).Run(ctx))

	serviceRepo := database.NewCachedServiceAdapter(baseServices, store)
	requestRepo := database.NewServiceRequestAdapter(client)
	userRepo := database.NewUserAdapter(client)
	responseRepo := database.NewClientResponseAdapter(client)

	renderer, err := views.New()
	require.NoError(t, err)
	sessions, err := session.NewManager(store, config.SessionConfig{HashKey: "router-test-hash-key", TTL: time.Hour})
	require.NoError(t, err)
	responder := handlers.NewResponder(renderer, sessions)

	catalog := services.NewCatalogService(serviceRepo)
	clients := services.NewClientService(serviceRepo, requestRepo, responseRepo, bus, nil)

	router := NewRouter(
		responder,
		sessions,
		handlers.NewCatalogHandler(responder, catalog),
		handlers.NewRequestHandler(responder, services.NewRequestService(catalog, requestRepo, bus, nil)),
		handlers.NewAuthHandler(responder, services.NewAuthService(userRepo), catalog),
		handlers.NewClientHandler(responder, clients),
		handlers.NewStreamHandler(clients, bus, time.Hour),
		handlers.NewHealthHandler(client),
		nil,
		nil,
	)
	router.mux.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)

	return &testApp{server: server, db: client}
}

func (a *testApp) requestID(t *testing.T, customer string) int64 {
	t.Helper()
	var id int64
	err := a.db.DB().QueryRow("SELECT id FROM service_request WHERE customer_name = ?", customer).Scan(&id)
	require.NoError(t, err)
	return id
}

func (a *testApp) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, a.db.DB().QueryRow(query, args...).Scan(&n))
	return n
}

// browser is a cookie-keeping client that does not follow redirects
type browser struct {
	t      *testing.T
	app    *testApp
	client *http.Client
}

func (a *testApp) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		app: a,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.app.server.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.app.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) register(username, role, serviceType string) *http.Response {
	b.t.Helper()
	resp, _ := b.post("/register", url.Values{
		"username":     {username},
		"email":        {username + "@example.com"},
		"password":     {"pw-" + username},
		"role":         {role},
		"service_type": {serviceType},
	})
	return resp
}

func (b *browser) login(username string) *http.Response {
	b.t.Helper()
	resp, _ := b.post("/login", url.Values{
		"username_or_email": {username},
		"password":          {"pw-" + username},
	})
	return resp
}

func (b *browser) signUp(username, role, serviceType string) {
	b.t.Helper()
	require.Equal(b.t, http.StatusFound, b.register(username, role, serviceType).StatusCode)
	require.Equal(b.t, http.StatusFound, b.login(username).StatusCode)
}

func (b *browser) serviceID(name string) string {
	b.t.Helper()
	_, body := b.get("/get_services")
	var summaries []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(b.t, json.Unmarshal([]byte(body), &summaries))
	for _, s := range summaries {
		if s.Name == name {
			return strconv.FormatInt(s.ID, 10)
		}
	}
	b.t.Fatalf("service %s not listed", name)
	return ""
}

func (b *browser) submit(service, customer string) (*http.Response, string) {
	b.t.Helper()
	return b.post("/submit_request", url.Values{
		"service_id":     {b.serviceID(service)},
		"customer_name":  {customer},
		"customer_email": {strings.ToLower(customer) + "@example.com"},
		"customer_phone": {"555-0100"},
		"address":        {"1 Main St"},
		"description":    {"Needs help"},
		"urgency":        {"high"},
	})
}

func TestIndex_ListsSeededCatalog(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, body := b.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	for _, svc := range services.DefaultCatalog {
		assert.Contains(t, body, svc.Name)
	}
	assert.Contains(t, body, `href="/login"`)
}

func TestGetServices(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, body := b.get("/get_services")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var summaries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &summaries))
	require.Len(t, summaries, 9)
	assert.Equal(t, "Plumbing", summaries[0]["name"])
	assert.Equal(t, "Fire Fighter", summaries[8]["name"])
	assert.NotContains(t, summaries[0], "description")
}

func TestAnonymousRequestRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, _ := b.get("/service/3")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=/service/3", resp.Header.Get("Location"))

	resp, _ = b.post("/submit_request", url.Values{"service_id": {"3"}, "customer_name": {"X"}})
	assert.Equal(t, "/login?next=/service/3", resp.Header.Get("Location"))

	resp, _ = b.post("/submit_request", url.Values{"customer_name": {"X"}})
	assert.Equal(t, "/login?next=/", resp.Header.Get("Location"))

	assert.Zero(t, app.count(t, "SELECT COUNT(*) FROM service_request"))
}

func TestRegisterLoginAndSubmit(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp := b.register("alice", "user", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=/", resp.Header.Get("Location"))

	_, body := b.get("/login")
	assert.Contains(t, body, "Registration successful. Please log in.")

	resp, _ = b.post("/login", url.Values{"username_or_email": {"alice@example.com"}, "password": {"pw-alice"}, "next": {"/"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body = b.get("/")
	assert.Contains(t, body, "Logged in successfully")
	assert.Contains(t, body, "Signed in as alice")

	resp, body = b.get("/service/" + b.serviceID("Plumbing"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="customer_name"`)

	resp, body = b.submit("Plumbing", "Alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Request Received")
	assert.Contains(t, body, "Thank you, Alice. Your Plumbing request has been submitted.")
	assert.Equal(t, 1, app.count(t, "SELECT COUNT(*) FROM service_request"))
}

func TestLogin_HonoursSafeNextOnly(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusFound, b.register("carol", "user", "").StatusCode)

	resp, _ := b.post("/login", url.Values{"username_or_email": {"carol"}, "password": {"pw-carol"}, "next": {"/service/3"}})
	assert.Equal(t, "/service/3", resp.Header.Get("Location"))

	resp, _ = b.post("/login", url.Values{"username_or_email": {"carol"}, "password": {"pw-carol"}, "next": {"//evil.example/"}})
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusFound, b.register("dave", "user", "").StatusCode)

	resp, _ := b.post("/login", url.Values{"username_or_email": {"dave"}, "password": {"wrong"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := b.get("/login")
	assert.Contains(t, body, "Invalid credentials")
	assert.NotContains(t, body, "Signed in as")
}

func TestRegister_Rejections(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusFound, b.register("erin", "user", "").StatusCode)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "duplicate username",
			form: url.Values{"username": {"erin"}, "email": {"other@example.com"}, "password": {"x"}},
			want: "A user with that username or email already exists",
		},
		{
			name: "duplicate email",
			form: url.Values{"username": {"erin2"}, "email": {"erin@example.com"}, "password": {"x"}},
			want: "A user with that username or email already exists",
		},
		{
			name: "missing password",
			form: url.Values{"username": {"frank"}, "email": {"frank@example.com"}},
			want: "Please fill in all required fields",
		},
		{
			name: "client without service type",
			form: url.Values{"username": {"gina"}, "email": {"gina@example.com"}, "password": {"x"}, "role": {"client"}},
			want: "Please select a service type for client registration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := b.post("/register", tt.form)
			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/register", resp.Header.Get("Location"))

			_, body := b.get("/register")
			assert.Contains(t, body, tt.want)
		})
	}

	assert.Equal(t, 1, app.count(t, `SELECT COUNT(*) FROM "user"`))
}

func TestClientPagesRequireClient(t *testing.T) {
	app := newTestApp(t)
	anon := app.browser(t)

	resp, _ := anon.get("/client/dashboard")
	assert.Equal(t, "/login?next=/client/dashboard", resp.Header.Get("Location"))

	resp, _ = anon.get("/client/requests")
	assert.Equal(t, "/login?next=/client/requests", resp.Header.Get("Location"))

	resp, _ = anon.post("/client/request/1/accept", nil)
	assert.Equal(t, "/login?next=/client/requests", resp.Header.Get("Location"))

	resp, _ = anon.get("/client/request/1/respond")
	assert.Equal(t, "/login?next=/client/requests", resp.Header.Get("Location"))

	_, body := anon.get("/login")
	assert.Contains(t, body, "You must be logged in as a client to access this page.")

	customer := app.browser(t)
	customer.signUp("hank", "user", "")
	resp, _ = customer.get("/client/dashboard")
	assert.Equal(t, "/login?next=/client/dashboard", resp.Header.Get("Location"))
}

func TestClientQueue(t *testing.T) {
	app := newTestApp(t)

	customer := app.browser(t)
	customer.signUp("ivy", "user", "")
	_, _ = customer.submit("Plumbing", "Pipes")
	_, _ = customer.submit("Cleaning", "Dusty")

	provider := app.browser(t)
	provider.signUp("joe", "client", "Plumbing")

	resp, body := provider.get("/client/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Plumbing Dashboard")
	assert.Contains(t, body, `id="total-requests">1<`)
	assert.Contains(t, body, `id="pending-requests">1<`)
	assert.Contains(t, body, "Pipes")
	assert.NotContains(t, body, "Dusty")

	reqID := app.requestID(t, "Pipes")
	id := strconv.FormatInt(reqID, 10)

	resp, _ = provider.post("/client/request/"+id+"/accept", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/client/requests", resp.Header.Get("Location"))

	_, body = provider.get("/client/requests")
	assert.Contains(t, body, "Request accepted successfully!")
	assert.Contains(t, body, "badge bg-success")

	// Accepting again updates the existing row.
	_, _ = provider.post("/client/request/"+id+"/accept", nil)
	assert.Equal(t, 1, app.count(t, "SELECT COUNT(*) FROM client_response WHERE request_id = ?", reqID))

	resp, body = provider.get("/client/request/" + id + "/respond")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Respond to Request #"+id)

	resp, _ = provider.post("/client/request/"+id+"/respond", url.Values{"message": {"On my way"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/client/requests", resp.Header.Get("Location"))

	_, body = provider.get("/client/requests")
	assert.Contains(t, body, "Response sent successfully!")
	assert.Equal(t, 2, app.count(t, "SELECT COUNT(*) FROM client_response WHERE request_id = ?", reqID))
	assert.Equal(t, 1, app.count(t, "SELECT COUNT(*) FROM client_response WHERE request_id = ? AND accepted = 0 AND message = 'On my way'", reqID))
}

func TestClientQueue_OtherServiceIsForbidden(t *testing.T) {
	app := newTestApp(t)

	customer := app.browser(t)
	customer.signUp("kim", "user", "")
	_, _ = customer.submit("Cleaning", "Dusty")
	id := strconv.FormatInt(app.requestID(t, "Dusty"), 10)

	provider := app.browser(t)
	provider.signUp("leo", "client", "Plumbing")

	resp, _ := provider.post("/client/request/"+id+"/accept", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/client/requests", resp.Header.Get("Location"))
	_, body := provider.get("/client/requests")
	assert.Contains(t, body, "You are not authorized to accept this request.")

	resp, _ = provider.post("/client/request/"+id+"/respond", url.Values{"message": {"hi"}})
	assert.Equal(t, "/client/requests", resp.Header.Get("Location"))
	_, body = provider.get("/client/requests")
	assert.Contains(t, body, "You are not authorized to respond to this request.")

	assert.Zero(t, app.count(t, "SELECT COUNT(*) FROM client_response"))
}

func TestClientQueue_UnknownRequest(t *testing.T) {
	app := newTestApp(t)
	provider := app.browser(t)
	provider.signUp("mia", "client", "Plumbing")

	resp, body := provider.post("/client/request/999/accept", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "could not be found")

	resp, _ = provider.get("/client/request/abc/respond")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientQueue_UnmatchedServiceType(t *testing.T) {
	app := newTestApp(t)
	provider := app.browser(t)
	provider.signUp("ned", "client", "Painting")

	resp, _ := provider.get("/client/dashboard")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := provider.get("/")
	assert.Contains(t, body, "No service found for your service type: Painting")
	assert.Contains(t, body, "No services available.")
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signUp("olga", "user", "")

	resp, _ := b.get("/logout")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := b.get("/")
	assert.Contains(t, body, "You have been logged out")
	assert.NotContains(t, body, "Signed in as")

	resp, _ = b.get("/service/1")
	assert.Equal(t, "/login?next=/service/1", resp.Header.Get("Location"))
}

func TestNotFoundAndUnknownService(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, body := b.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "could not be found")

	b.signUp("pat", "user", "")
	resp, _ = b.get("/service/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = b.post("/submit_request", url.Values{"service_id": {"999"}, "customer_name": {"Ghost"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, app.count(t, "SELECT COUNT(*) FROM service_request"))
}

func TestPanicRendersErrorPage(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, body := b.get("/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "An unexpected error occurred")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, body := b.get("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, body)
}
