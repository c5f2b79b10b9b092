package live

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// Watch connects to a flowcanvas server's live feed for one flow and
// returns a channel of mutation events. The channel closes when the
// context is cancelled or the connection drops.
func Watch(ctx context.Context, baseURL, flowID string) (<-chan Event, error) {
	wsURL := strings.Replace(strings.TrimRight(baseURL, "/"), "http", "ws", 1) +
		"/api/flows/" + flowID + "/live"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing live feed: %w", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer conn.Close()
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return events, nil
}
