package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/orchestration"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
)

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestStreamRunReplaysAndStreams(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.router)
	defer server.Close()

	ts.svc.history = []models.RunEvent{
		{RunID: "run-1", EventType: models.EventTypeProgress, State: pipeline.StateSynthesizing, Step: pipeline.StepSearchSources},
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/api/ws/runs/run-1?token="+ts.token(t, "user-1")), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first models.RunEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, pipeline.StateSynthesizing, first.State)

	result := pipeline.Result{Success: true}
	ts.svc.events <- models.RunEvent{RunID: "run-1", EventType: models.EventTypeProgress, State: pipeline.StateValidating}
	ts.svc.events <- models.RunEvent{RunID: "run-1", EventType: models.EventTypeCompleted, State: pipeline.StateDone, Result: &result}
	close(ts.svc.events)

	var second, last models.RunEvent
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, pipeline.StateValidating, second.State)
	require.NoError(t, conn.ReadJSON(&last))
	assert.Equal(t, models.EventTypeCompleted, last.EventType)
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.Success)

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestStreamRunRejects(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.router)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/api/ws/runs/run-1"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{"Authorization": []string{"Bearer " + ts.token(t, "user-2")}}
	for subErr, want := range map[error]int{
		orchestration.ErrNotFound:  http.StatusNotFound,
		orchestration.ErrForbidden: http.StatusForbidden,
	} {
		ts.svc.subErr = subErr
		_, resp, err = websocket.DefaultDialer.Dial(wsURL(server, "/api/ws/runs/run-1"), header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, want, resp.StatusCode)
	}
}
