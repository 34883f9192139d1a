package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
)

func openSocket(t *testing.T, hub *realtime.Hub, userID uuid.UUID) *realtime.Client {
	t.Helper()
	c := &realtime.Client{ID: uuid.NewString(), UserID: userID, Role: "client", Send: make(chan []byte, 4)}
	hub.RegisterClient(c)
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 5*time.Millisecond)
	return c
}

func TestNotifyPersistsWithoutHubOrRedis(t *testing.T) {
	gdb := testhelpers.OpenDB(t)
	user := testhelpers.CreateUser(t, gdb, models.RoleClient)

	svc := NewService(gdb, nil, nil)
	svc.Notify(context.Background(), user.ID, TypePaymentConfirmed, "Payment received", "KES 20", map[string]interface{}{"amount": 20})

	var rows []models.Notification
	require.NoError(t, gdb.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, TypePaymentConfirmed, rows[0].Type)
	assert.JSONEq(t, `{"amount":20}`, string(rows[0].Data))
	assert.False(t, rows[0].IsRead)
}

func TestNotifySwallowsInsertFailure(t *testing.T) {
	gdb := testhelpers.OpenDB(t)
	user := testhelpers.CreateUser(t, gdb, models.RoleClient)
	require.NoError(t, gdb.Migrator().DropTable(&models.Notification{}))

	svc := NewService(gdb, nil, nil)
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), user.ID, TypeJobStatus, "t", "b", nil)
	})
}

func TestNotifyPublishesToRedis(t *testing.T) {
	gdb := testhelpers.OpenDB(t)
	user := testhelpers.CreateUser(t, gdb, models.RoleFreelancer)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, realtime.NotificationChannel(user.ID.String()))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	hub := realtime.NewHub()
	go hub.Run()
	socket := openSocket(t, hub, user.ID)

	NewService(gdb, hub, rdb).Notify(ctx, user.ID, TypeEarnings, "Earnings credited", "KES 10", nil)

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, `"type":"notification"`)
		assert.Contains(t, msg.Payload, TypeEarnings)
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}
	// Local sockets are fed by the relay, not directly.
	assert.Len(t, socket.Send, 0)
}

func TestNotifyFallsBackToLocalHub(t *testing.T) {
	gdb := testhelpers.OpenDB(t)
	user := testhelpers.CreateUser(t, gdb, models.RoleClient)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	hub := realtime.NewHub()
	go hub.Run()
	socket := openSocket(t, hub, user.ID)

	NewService(gdb, hub, rdb).Notify(context.Background(), user.ID, TypeJobStatus, "Job updated", "in progress", nil)

	select {
	case raw := <-socket.Send:
		assert.Contains(t, string(raw), TypeJobStatus)
	case <-time.After(time.Second):
		t.Fatal("socket got nothing")
	}
}
