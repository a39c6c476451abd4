package handler

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"tutor-backend/internal/model"
	"tutor-backend/internal/service"
	"tutor-backend/pkg/logger"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	frameMessage = "message"
	frameCancel  = "cancel"
	frameDelta   = "delta"
	frameDone    = "done"
	frameError   = "error"
)

// SocketHandler streams chat replies over a websocket. Each "message" frame
// starts one reply; a "cancel" frame with the same id aborts it.
type SocketHandler struct {
	chatService    *service.ChatService
	originPatterns []string
	timeout        time.Duration
}

// NewSocketHandler accepts upgrades from the given CORS origins.
func NewSocketHandler(chatService *service.ChatService, allowedOrigins []string, timeout time.Duration) *SocketHandler {
	if timeout <= 0 {
		timeout = 25 * time.Minute
	}
	return &SocketHandler{
		chatService:    chatService,
		originPatterns: originPatterns(allowedOrigins),
		timeout:        timeout,
	}
}

// originPatterns turns CORS origins into the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			patterns = append(patterns, "*")
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			patterns = append(patterns, origin)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}

func (h *SocketHandler) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		logger.Warnf("failed to accept websocket: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	h.handleConnection(c.Request.Context(), conn)
}

type socketConn struct {
	// ctx spans the connection. Writes use it, never a reply's context.
	ctx  context.Context
	conn *websocket.Conn

	mu       sync.Mutex
	inflight map[string]*inflightReply
	wg       sync.WaitGroup
}

type inflightReply struct {
	cancel context.CancelFunc
}

func (h *SocketHandler) handleConnection(ctx context.Context, conn *websocket.Conn) {
	ctx, cancelAll := context.WithCancel(ctx)
	sc := &socketConn{ctx: ctx, conn: conn, inflight: make(map[string]*inflightReply)}
	defer func() {
		cancelAll()
		sc.wg.Wait()
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			logger.Debugf("websocket read ended: %v", err)
			return
		}

		var frame model.SocketRequest
		if err := json.Unmarshal(data, &frame); err != nil {
			sc.send(model.StreamChunk{Type: frameError, Error: "invalid frame", Code: codeInvalidInput})
			continue
		}

		switch frame.Type {
		case frameMessage:
			msgCtx, cancel := context.WithTimeout(ctx, h.timeout)
			reply := sc.track(frame.ID, cancel)
			sc.wg.Add(1)
			go func() {
				defer sc.wg.Done()
				defer sc.untrack(frame.ID, reply)
				h.handleMessage(msgCtx, sc, frame)
			}()

		case frameCancel:
			sc.cancel(frame.ID)

		default:
			sc.send(model.StreamChunk{
				Type:  frameError,
				ID:    frame.ID,
				Error: "unknown frame type " + frame.Type,
				Code:  codeInvalidInput,
			})
		}
	}
}

func (h *SocketHandler) handleMessage(ctx context.Context, sc *socketConn, frame model.SocketRequest) {
	log := logger.WithFields(logrus.Fields{"session_id": frame.SessionID, "frame_id": frame.ID})
	log.Debugf("websocket message: %s", logger.Truncate(frame.Content, 80))

	message, err := h.chatService.StreamMessage(ctx, frame.SessionID, frame.Content, func(delta string) error {
		return sc.send(model.StreamChunk{
			Type:      frameDelta,
			ID:        frame.ID,
			SessionID: frame.SessionID,
			Content:   delta,
			Timestamp: time.Now().Unix(),
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Debugf("websocket reply aborted: %v", err)
			return
		}
		_, body := errorBody(err)
		sc.send(model.StreamChunk{
			Type:      frameError,
			ID:        frame.ID,
			SessionID: frame.SessionID,
			Error:     body.Error,
			Code:      body.Code,
			Timestamp: time.Now().Unix(),
		})
		return
	}

	sc.send(model.StreamChunk{
		Type:      frameDone,
		ID:        frame.ID,
		SessionID: frame.SessionID,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

func (sc *socketConn) send(chunk model.StreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return sc.conn.Write(sc.ctx, websocket.MessageText, data)
}

// track registers a reply under its frame id. A repeated id cancels the
// reply it replaces.
func (sc *socketConn) track(id string, cancel context.CancelFunc) *inflightReply {
	reply := &inflightReply{cancel: cancel}
	if id == "" {
		return reply
	}
	sc.mu.Lock()
	if previous, ok := sc.inflight[id]; ok {
		previous.cancel()
	}
	sc.inflight[id] = reply
	sc.mu.Unlock()
	return reply
}

func (sc *socketConn) untrack(id string, reply *inflightReply) {
	reply.cancel()
	if id == "" {
		return
	}
	sc.mu.Lock()
	if sc.inflight[id] == reply {
		delete(sc.inflight, id)
	}
	sc.mu.Unlock()
}

func (sc *socketConn) cancel(id string) {
	sc.mu.Lock()
	reply, ok := sc.inflight[id]
	sc.mu.Unlock()
	if ok {
		reply.cancel()
	}
}
