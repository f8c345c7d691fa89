package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AleoRisk/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan models.ProgressEvent) []models.ProgressEvent {
	t.Helper()
	var out []models.ProgressEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("channel not closed")
		}
	}
}

func TestHubDeliversAndClosesOnDone(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("a1")
	defer cancel()
	assert.Equal(t, 1, h.Subscribers("a1"))

	h.Publish(models.ProgressEvent{AnalysisID: "a1", Step: "one", Progress: 10})
	h.Publish(models.ProgressEvent{AnalysisID: "other", Step: "x", Progress: 10})
	h.Publish(models.ProgressEvent{AnalysisID: "a1", Step: "done", Progress: 100, Done: true})

	got := drain(t, ch)
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].Progress)
	assert.True(t, got[1].Done)
	assert.Equal(t, 0, h.Subscribers("a1"))
}

func TestHubReplaysForLateSubscribers(t *testing.T) {
	h := NewHub(nil)
	h.Publish(models.ProgressEvent{AnalysisID: "a1", Progress: 10})
	h.Publish(models.ProgressEvent{AnalysisID: "a1", Progress: 20})

	ch, cancel := h.Subscribe("a1")
	h.Publish(models.ProgressEvent{AnalysisID: "a1", Progress: 30})
	cancel()

	got := drain(t, ch)
	require.Len(t, got, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{got[0].Progress, got[1].Progress, got[2].Progress})
}

func TestHubSubscribeAfterDoneReturnsClosedReplay(t *testing.T) {
	h := NewHub(nil)
	h.Publish(models.ProgressEvent{AnalysisID: "a1", Progress: 100, Done: true})

	ch, cancel := h.Subscribe("a1")
	defer cancel()
	got := drain(t, ch)
	require.Len(t, got, 1)
	assert.Equal(t, 0, h.Subscribers("a1"))
}

func TestHubReplayIsBounded(t *testing.T) {
	h := NewHub(nil)
	for i := 0; i < replayLimit+10; i++ {
		h.Publish(models.ProgressEvent{AnalysisID: "a1", Progress: i})
	}
	assert.Len(t, h.replay["a1"], replayLimit)
	assert.Equal(t, 10, h.replay["a1"][0].Progress)
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("a1")
	h.Close()
	cancel()
	assert.Empty(t, drain(t, ch))

	h.Publish(models.ProgressEvent{AnalysisID: "a1", Progress: 10})
	ch2, _ := h.Subscribe("a1")
	assert.Empty(t, drain(t, ch2))
}

func TestServeWS(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, "a1")
	}))
	defer srv.Close()

	h.Publish(models.ProgressEvent{AnalysisID: "a1", Step: "Parsing", Progress: 10})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first models.ProgressEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "Parsing", first.Step)

	require.Eventually(t, func() bool { return h.Subscribers("a1") == 1 }, time.Second, 10*time.Millisecond)
	h.Publish(models.ProgressEvent{AnalysisID: "a1", Step: "Done", Progress: 100, Done: true})

	var last models.ProgressEvent
	require.NoError(t, conn.ReadJSON(&last))
	assert.True(t, last.Done)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
