package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/lodestone/internal/logger"
)

// heartbeatInterval paces the comment lines that keep idle event streams
// alive through proxies and surface dead peers as write errors.
const heartbeatInterval = 15 * time.Second

// handleEventStream serves the progression event feed as server-sent
// events. The subscription lasts until the client disconnects or the
// server shuts down; events arriving while the subscriber's buffer is full
// are dropped by the broadcaster rather than blocking the workflows.
func (a *RESTAdapter) handleEventStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	// The stream outlives any sensible write timeout; clear the server
	// wide deadline for this connection only.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug("Event stream: failed to clear write deadline: %v", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	subID, ch := a.orch.Events().Subscribe()
	defer a.orch.Events().Unsubscribe(subID)

	user := requestUser(r)
	logger.Debug("Event stream opened for user %s (subscriber %s)", user.Username, subID)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("Event stream closed by client (subscriber %s)", subID)
			return

		case <-a.closeStreams:
			logger.Debug("Event stream closed by shutdown (subscriber %s)", subID)
			return

		case event := <-ch:
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to encode event %d: %v", event.ID, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.ID, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
