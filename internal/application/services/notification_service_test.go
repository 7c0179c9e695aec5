package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
)

type chanNotifier chan string

func (c chanNotifier) Notify(_ context.Context, text string) error {
	c <- text
	return nil
}

func nextNotification(t *testing.T, notes chanNotifier) string {
	t.Helper()
	select {
	case text := <-notes:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
		return ""
	}
}

func TestNotificationService_ForwardsNewRequests(t *testing.T) {
	p := newPortal(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notes := make(chanNotifier, 4)
	svc := services.NewNotificationService(
		database.NewServiceAdapter(p.client),
		database.NewServiceRequestAdapter(p.client),
		p.bus,
		notes,
	)
	require.NoError(t, svc.Start(ctx))

	first := p.submit(t, "Plumbing", "ann")
	text := nextNotification(t, notes)
	assert.Contains(t, text, "New Plumbing request #"+itoa(first.ID))
	assert.Contains(t, text, "ann, ann@example.com, 555-0101")
	assert.Contains(t, text, "2 Side St")

	// lifecycle events other than creation are not forwarded
	require.NoError(t, p.bus.Publish(ctx, providers.GetServiceChannel("Plumbing"), &entities.RequestEvent{
		Type:        entities.RequestEventAccepted,
		RequestID:   first.ID,
		ServiceName: "Plumbing",
	}))

	second := p.submit(t, "Cleaning", "bob")
	text = nextNotification(t, notes)
	assert.Contains(t, text, "New Cleaning request #"+itoa(second.ID))
}
