package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/palproject/pal/internal/bus"
	"github.com/palproject/pal/internal/config"
)

const webChannelName = "web"

type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Mood    string `json:"mood,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

// WebChannel talks to browser clients over a websocket. It does not listen
// itself; the gateway's HTTP server mounts Handler on its mux.
type WebChannel struct {
	BaseChannel
	clients sync.Map
	nextID  atomic.Int64
}

func NewWebChannel(_ config.WebConfig, b *bus.MessageBus) *WebChannel {
	return &WebChannel{
		BaseChannel: NewBaseChannel(webChannelName, b, nil),
	}
}

// Start is a no-op: the HTTP server owns the listener.
func (w *WebChannel) Start(_ context.Context) error {
	return nil
}

// Handler accepts websocket connections and feeds owner messages to the bus.
func (w *WebChannel) Handler() http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("[web] websocket accept error: %v", err)
			return
		}

		clientID := fmt.Sprintf("web-%d", w.nextID.Add(1))
		client := &wsClient{conn: conn, id: clientID}
		w.clients.Store(clientID, client)
		log.Printf("[web] client connected: %s", clientID)

		defer func() {
			w.clients.Delete(clientID)
			conn.CloseNow()
			log.Printf("[web] client disconnected: %s", clientID)
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}

			var msg wsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type != "message" || msg.Content == "" {
				continue
			}

			w.bus.Inbound <- bus.InboundMessage{
				Channel:   webChannelName,
				SenderID:  clientID,
				ChatID:    clientID,
				Content:   msg.Content,
				Timestamp: time.Now(),
			}
		}
	}
}

func (w *WebChannel) Send(msg bus.OutboundMessage) error {
	mood := ""
	if m, ok := msg.Metadata["mood"].(string); ok {
		mood = m
	}
	data, err := json.Marshal(wsMessage{
		Type:    "message",
		Content: msg.Content,
		Kind:    msg.Kind,
		Mood:    mood,
	})
	if err != nil {
		return err
	}

	client, ok := w.clients.Load(msg.ChatID)
	if !ok {
		// Spontaneous pushes have no specific target: broadcast.
		w.clients.Range(func(_, value any) bool {
			c := value.(*wsClient)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.conn.Write(ctx, websocket.MessageText, data)
			return true
		})
		return nil
	}

	c := client.(*wsClient)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebChannel) Stop() error {
	w.clients.Range(func(_, value any) bool {
		c := value.(*wsClient)
		c.conn.CloseNow()
		return true
	})
	log.Printf("[web] stopped")
	return nil
}
