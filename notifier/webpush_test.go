package notifier

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browserKeys(t *testing.T) PushKeys {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return PushKeys{
		P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

func TestWebPush_RequiresSubjectAndGeneratesKeys(t *testing.T) {
	_, err := NewWebPush(WebPushConfig{})
	require.Error(t, err)

	w, err := NewWebPush(WebPushConfig{Subject: "mailto:ops@jaat.ai"})
	require.NoError(t, err)
	assert.NotEmpty(t, w.VAPIDPublicKey())
	assert.Error(t, w.Subscribe("u1", PushSubscription{ID: "s1"}))
}

func TestPushTarget_PermissionFollowsSubscriptions(t *testing.T) {
	w, err := NewWebPush(WebPushConfig{Subject: "mailto:ops@jaat.ai"})
	require.NoError(t, err)
	target := w.For("u1")
	assert.Equal(t, PermissionDefault, target.Permission())

	require.NoError(t, w.Subscribe("u1", PushSubscription{ID: "s1", Endpoint: "https://push.example/s1"}))
	state, err := target.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, state)
	assert.Equal(t, PermissionDefault, w.For("u2").Permission())

	w.Unsubscribe("u1", "s1")
	assert.Empty(t, w.Subscriptions("u1"))
}

func TestPushTarget_DeliverEncryptsAndPrunesExpired(t *testing.T) {
	var hits atomic.Int32
	var status atomic.Int32
	status.Store(http.StatusCreated)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "60", r.Header.Get("TTL"))
		assert.Contains(t, r.Header.Get("Authorization"), "vapid")
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	w, err := NewWebPush(WebPushConfig{Subject: "mailto:ops@jaat.ai", TTL: 60, HTTPClient: srv.Client()})
	require.NoError(t, err)
	require.NoError(t, w.Subscribe("u1", PushSubscription{ID: "s1", Endpoint: srv.URL + "/s1", Keys: browserKeys(t)}))
	target := w.For("u1")

	n := &Notification{ID: "notification-1", Title: "Export Complete", Message: "done", Type: TypeSuccess}
	require.NoError(t, target.Deliver(context.Background(), n))
	assert.EqualValues(t, 1, hits.Load())

	status.Store(http.StatusGone)
	require.Error(t, target.Deliver(context.Background(), n))
	assert.Empty(t, w.Subscriptions("u1"))
	assert.Equal(t, PermissionDefault, target.Permission())
}

func TestPushTarget_DrivesNotifierDesktop(t *testing.T) {
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	w, err := NewWebPush(WebPushConfig{Subject: "mailto:ops@jaat.ai", HTTPClient: srv.Client()})
	require.NoError(t, err)
	require.NoError(t, w.Subscribe("u1", PushSubscription{ID: "s1", Endpoint: srv.URL, Keys: browserKeys(t)}))
	target := w.For("u1")

	n, _ := newTestNotifier(t, nil, Options{Desktop: target, Permission: target})
	assert.Equal(t, PermissionGranted, n.Permission())
	n.Notify(Request{Message: "hello"})
	<-received
}
