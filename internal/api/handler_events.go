package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"table-status-backend/internal/confirm"
	"table-status-backend/internal/engine"
	"table-status-backend/internal/notice"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type eventMessage struct {
	Kind         engine.SignalKind `json:"kind"`
	View         engine.View       `json:"view"`
	Notices      []notice.Notice   `json:"notices"`
	Confirmation *confirm.Prompt   `json:"confirmation,omitempty"`
}

// Events streams every state change over a websocket. Each message carries
// the kind of change and the full state to render.
func (h *Handler) Events(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer ws.Close()

	signals, unsubscribe := h.engine.Signals().Subscribe(64)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.writeEvent(ws, engine.SignalTables); err != nil {
		return
	}
	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if err := h.writeEvent(ws, sig.Kind); err != nil {
				log.WithError(err).Debug("websocket client gone")
				return
			}
		case <-closed:
			return
		case <-h.bg.Done():
			return
		}
	}
}

func (h *Handler) writeEvent(ws *websocket.Conn, kind engine.SignalKind) error {
	msg := eventMessage{
		Kind:    kind,
		View:    h.engine.View(),
		Notices: h.notices.Active(),
	}
	if prompt, open := h.gate.Pending(); open {
		msg.Confirmation = &prompt
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(msg)
}
