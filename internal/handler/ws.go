package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"magic-mirror/internal/workflow"
	"magic-mirror/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-host only; the desktop shell and CLI both connect
	// from localhost.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type progressFrame struct {
	TaskId  string `json:"task_id"`
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Time    int64  `json:"time"`
}

// TaskProgress streams a running task's state transitions over a
// WebSocket. The connection closes after the terminal transition.
func (h *Handler) TaskProgress(c *gin.Context) {
	taskId := c.Param("taskId")
	events, stop, err := h.Service.SubscribeTask(taskId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task is not running"})
		return
	}
	defer stop()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.GetLogger().Warn("TaskProgress upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reader goroutine notices the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			frame := progressFrame{
				TaskId:  taskId,
				State:   ev.State.String(),
				Message: ev.Message,
				Time:    ev.OccurredAt.Unix(),
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
			if ev.State == workflow.StateSucceeded || ev.State == workflow.StateFailed {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ev.State.String()))
				return
			}
		}
	}
}
