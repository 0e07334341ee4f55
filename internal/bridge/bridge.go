package bridge

import (
	"encoding/json"
	"log/slog"
	"time"

	ws "github.com/gorilla/websocket"

	"rakshak/internal/intent"
	"rakshak/internal/session"
)

// Message is the JSON frame exchanged with the speech/GUI hub.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content,omitempty"`
}

// Frame kinds on the bus.
const (
	KindUtterance  = "utterance"
	KindStart      = "start"
	KindStop       = "stop"
	KindReply      = "reply"
	KindSessionEnd = "session_end"
	KindError      = "error"
)

const shardName = "rakshak"

// Bridge connects the engine to the speech/GUI hub over a websocket. It
// moves plain text in and ResponsePayload JSON out; all audio stays on the
// hub side.
type Bridge struct {
	url    string
	reconn time.Duration
	co     *session.Coordinator
	log    *slog.Logger

	conn *ws.Conn
}

func New(url string, reconnSecs uint, co *session.Coordinator, log *slog.Logger) *Bridge {
	if reconnSecs == 0 {
		reconnSecs = 2
	}
	return &Bridge{
		url:    url,
		reconn: time.Duration(reconnSecs) * time.Second,
		co:     co,
		log:    log,
	}
}

// Run dials the hub and serves frames until the connection is lost beyond
// recovery. The hub may come up after the daemon, so the first dial retries
// like a reconnect does. Blocks; run it on its own goroutine.
func (b *Bridge) Run() error {
	b.connect()

	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			if !wsIsClosed(err) {
				b.log.Error("Failed to read from hub", "err", err)
				return err
			}
			b.log.Warn("Hub connection closed, reconnecting", "url", b.url)
			b.connect()
			continue
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			b.log.Warn("Failed to parse hub frame", "err", err)
			continue
		}
		if msg.To != "" && msg.To != shardName {
			continue
		}

		b.handle(msg)
	}
}

func (b *Bridge) handle(msg Message) {
	switch msg.Kind {
	case KindStart:
		if err := b.co.Start(); err != nil {
			b.reply(msg.From, KindError, err.Error())
		}

	case KindStop:
		if err := b.co.Stop(); err != nil {
			b.reply(msg.From, KindError, err.Error())
		}

	case KindUtterance:
		// Each turn re-enters from Idle, so a session that was started
		// once keeps accepting utterances.
		if b.co.Phase() == session.Idle {
			if err := b.co.Start(); err != nil {
				b.reply(msg.From, KindError, err.Error())
				return
			}
		}
		payload, err := b.co.HandleUtterance(msg.Content)
		if err != nil {
			b.reply(msg.From, KindError, err.Error())
			return
		}

		data, err := json.Marshal(payload)
		if err != nil {
			b.log.Error("Failed to marshal payload", "err", err)
			return
		}
		b.reply(msg.From, KindReply, string(data))

		if payload.Category == intent.Exit {
			b.reply(msg.From, KindSessionEnd, "")
		}

	default:
		b.log.Warn("Unknown frame kind", "kind", msg.Kind)
	}
}

func (b *Bridge) reply(to, kind, content string) {
	data, err := json.Marshal(Message{
		From:    shardName,
		To:      to,
		Kind:    kind,
		Content: content,
	})
	if err != nil {
		return
	}
	if err := b.conn.WriteMessage(ws.TextMessage, data); err != nil {
		b.log.Error("Failed to write to hub", "kind", kind, "err", err)
	}
}

func (b *Bridge) connect() {
	for {
		conn, _, err := ws.DefaultDialer.Dial(b.url, nil)
		if err == nil {
			b.conn = conn
			b.log.Info("Connected to hub", "url", b.url)
			return
		}
		b.log.Debug("Hub not reachable, retrying", "url", b.url, "err", err)
		time.Sleep(b.reconn)
	}
}

func wsIsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
