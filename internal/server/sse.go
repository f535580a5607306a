package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleEvents streams live messages over Server-Sent Events. A comment
// heartbeat is emitted whenever no real message has been delivered
// within the configured interval, so idle connections stay
// distinguishable from dead ones. The subscriber is always removed from
// the broadcaster when the client goes away.
func (s *Server) handleEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := s.bcast.Subscribe()
	defer s.bcast.Unsubscribe(sub)

	flusher, _ := c.Writer.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	// Open the stream immediately so the client sees the connection.
	fmt.Fprint(c.Writer, ": ok\n\n")
	flush()

	heartbeat := time.NewTimer(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return

		case msg := <-sub.C():
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("sse: marshal failed: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(c.Writer, "event: message\ndata: %s\n\n", data); err != nil {
				return
			}
			flush()
			if !heartbeat.Stop() {
				select {
				case <-heartbeat.C:
				default:
				}
			}
			heartbeat.Reset(s.heartbeat)

		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flush()
			heartbeat.Reset(s.heartbeat)
		}
	}
}
