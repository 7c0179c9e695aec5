package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/adapters/events"
	"github.com/zatekoja/serviceportal/internal/api/session"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	"github.com/zatekoja/serviceportal/internal/testutil"
)

type streamFixture struct {
	server   *httptest.Server
	requests *services.RequestService
	catalog  *services.CatalogService
}

func newStreamFixture(t *testing.T, sess *session.Session) *streamFixture {
	t.Helper()
	client := testutil.NewSQLiteClient(t)
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { bus.Close() })

	serviceRepo := database.NewServiceAdapter(client)
	requestRepo := database.NewServiceRequestAdapter(client)
	catalog := services.NewCatalogService(serviceRepo)
	require.NoError(t, services.NewBootstrapService(migrations.New(client), serviceRepo).Run(context.Background()))

	clients := services.NewClientService(serviceRepo, requestRepo, database.NewClientResponseAdapter(client), bus, nil)
	h := NewStreamHandler(clients, bus, time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.StreamRequests(w, withSession(r, sess))
	}))
	t.Cleanup(server.Close)

	return &streamFixture{
		server:   server,
		requests: services.NewRequestService(catalog, requestRepo, bus, nil),
		catalog:  catalog,
	}
}

// nextEvent reads one "event:/data:" block from the stream
func nextEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamRequests_DeliversServiceEvents(t *testing.T) {
	sess := &session.Session{ID: "c1", Data: session.Data{UserID: 7, Role: entities.RoleClient, ServiceType: "Plumbing"}}
	f := newStreamFixture(t, sess)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, _ := nextEvent(t, reader)
	require.Equal(t, "connected", event)

	var plumbing, cleaning int64
	list, err := f.catalog.List(ctx)
	require.NoError(t, err)
	for _, s := range list {
		switch s.Name {
		case "Plumbing":
			plumbing = s.ID
		case "Cleaning":
			cleaning = s.ID
		}
	}

	// Cleaning requests go to another channel and must not show up here.
	_, _, err = f.requests.Submit(ctx, services.SubmitInput{ServiceID: strconv.FormatInt(cleaning, 10), CustomerName: "Ann"})
	require.NoError(t, err)
	created, _, err := f.requests.Submit(ctx, services.SubmitInput{ServiceID: strconv.FormatInt(plumbing, 10), CustomerName: "Bo"})
	require.NoError(t, err)

	event, data := nextEvent(t, reader)
	require.Equal(t, "request", event)

	var got entities.RequestEvent
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, entities.RequestEventCreated, got.Type)
	assert.Equal(t, created.ID, got.RequestID)
	assert.Equal(t, "Plumbing", got.ServiceName)
}

func TestStreamRequests_RequiresClient(t *testing.T) {
	f := newStreamFixture(t, &session.Session{ID: "u1", Data: session.Data{UserID: 3, Role: entities.RoleUser}})

	resp, err := http.Get(f.server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreamRequests_UnknownServiceType(t *testing.T) {
	f := newStreamFixture(t, &session.Session{ID: "c2", Data: session.Data{UserID: 9, Role: entities.RoleClient, ServiceType: "Painting"}})

	resp, err := http.Get(f.server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
