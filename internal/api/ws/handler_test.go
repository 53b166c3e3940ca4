package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/membrane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/membrane/internal/scenario"
)

type reply struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Run     *scenario.Run   `json:"run"`
	Event   *scenario.Event `json:"event"`
}

func dial(t *testing.T) (*websocket.Conn, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := scenario.Default()
	require.NoError(t, err)
	runner, err := scenario.NewRunner(catalog, scenario.DefaultConfig())
	require.NoError(t, err)
	metrics := monitoring.NewMetrics()

	r := gin.New()
	r.GET("/stream", NewHandler(runner, metrics, nil, DefaultConfig()).HandleConnection)
	srv := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
		srv.Close()
		_ = runner.Close()
	})

	require.Equal(t, "system", read(t, c).Type)
	return c, metrics
}

func send(t *testing.T, c *websocket.Conn, msg Message) {
	t.Helper()
	data, err := sonic.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, c *websocket.Conn) reply {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(10*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var r reply
	require.NoError(t, sonic.Unmarshal(data, &r), string(data))
	return r
}

// await reads until a message of the given type arrives, collecting the
// events pushed in between.
func await(t *testing.T, c *websocket.Conn, typ string) (reply, []scenario.Event) {
	t.Helper()
	var events []scenario.Event
	for {
		r := read(t, c)
		if r.Type == typ {
			return r, events
		}
		if r.Event != nil {
			events = append(events, *r.Event)
		}
	}
}

func TestPing(t *testing.T) {
	c, metrics := dial(t)
	send(t, c, Message{Type: "ping"})
	r, _ := await(t, c, "pong")
	assert.Equal(t, "pong", r.Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
}

func TestRunOverSocket(t *testing.T) {
	c, _ := dial(t)
	var events []scenario.Event

	send(t, c, Message{Type: "run", Scenario: "object-equality"})
	r, seen := await(t, c, "run")
	events = append(events, seen...)
	require.NotNil(t, r.Run)
	assert.Equal(t, scenario.VerdictPass, r.Run.Verdict)
	runID := r.Run.ID

	send(t, c, Message{Type: "revoke", RunID: runID})
	r, seen = await(t, c, "revoke")
	events = append(events, seen...)
	require.NotNil(t, r.Run)
	assert.True(t, r.Run.Revoked)

	send(t, c, Message{Type: "detach", RunID: runID})
	_, seen = await(t, c, "detach")
	events = append(events, seen...)

	// events are delivered in publish order but independently of replies
	detached := func() bool {
		for _, e := range events {
			if e.Type == scenario.EventRunDetached {
				return true
			}
		}
		return false
	}
	for !detached() {
		if r := read(t, c); r.Event != nil {
			events = append(events, *r.Event)
		}
	}

	var types []scenario.EventType
	for _, e := range events {
		if e.RunID == runID && e.Type != scenario.EventCollected {
			types = append(types, e.Type)
		}
	}
	assert.Equal(t, []scenario.EventType{
		scenario.EventRunCompleted,
		scenario.EventRunRevoked,
		scenario.EventRunDetached,
	}, types)
}

func TestBadMessages(t *testing.T) {
	c, _ := dial(t)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{")))
	r, _ := await(t, c, "error")
	assert.Equal(t, "invalid message", r.Message)

	send(t, c, Message{Type: "teleport"})
	r, _ = await(t, c, "error")
	assert.Equal(t, "unknown message type", r.Message)

	send(t, c, Message{Type: "revoke", RunID: "run_missing"})
	r, _ = await(t, c, "error")
	assert.Contains(t, r.Message, scenario.ErrRunNotFound.Error())
}
