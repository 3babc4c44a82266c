package webui

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"runsettings/internal/jsonx"
	"runsettings/internal/logging"
	"runsettings/internal/observability"
	"runsettings/internal/session"
	"runsettings/internal/settings"
	"runsettings/internal/webui/handlers"
)

const (
	FrameToolSettings  = "tool_settings"
	FrameSelectedModel = "selected_model"
	FrameSettings      = "settings"
	FrameError         = "error"

	streamBuffer     = 32
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamMaxMessage = 64 << 10
)

// Frame is one outbound websocket message. Inbound messages are bare actions.
type Frame struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

// ToolArgsContent is the outbound tool settings payload.
type ToolArgsContent struct {
	ToolArgs settings.ToolSettings `json:"tool_args"`
}

// SelectedModelContent announces a model selection.
type SelectedModelContent struct {
	Model string `json:"model"`
}

// ErrorContent reports a rejected inbound action.
type ErrorContent struct {
	Message string `json:"message"`
}

// framesFor converts a store change into the frames the feed emits.
func framesFor(change settings.Change) []Frame {
	var frames []Frame
	if change.ModelSelected() {
		frames = append(frames, Frame{Type: FrameSelectedModel, Content: SelectedModelContent{Model: change.Next.SelectedModel}})
	}
	if change.ToolSettingsChanged() {
		frames = append(frames, Frame{Type: FrameToolSettings, Content: ToolArgsContent{ToolArgs: change.Next.ToolSettings}})
	}
	return frames
}

// streamConn is one open feed.
type streamConn struct {
	conn    *websocket.Conn
	session *session.Session
	send    chan Frame
	done    chan struct{}
	once    sync.Once
	logger  logging.Logger
	metrics *observability.Metrics
}

func (sc *streamConn) close() {
	sc.once.Do(func() { close(sc.done) })
}

// enqueue never blocks the dispatching goroutine; a full buffer drops the
// frame.
func (sc *streamConn) enqueue(frame Frame) {
	select {
	case <-sc.done:
	case sc.send <- frame:
	default:
		sc.logger.Warn("stream buffer full, dropping %s frame", frame.Type)
	}
}

// handleStream - GET /api/settings/stream
func (s *Server) handleStream(c *gin.Context) {
	sess, found := handlers.SessionFrom(c)
	if !found {
		c.AbortWithStatusJSON(http.StatusInternalServerError, handlers.APIResponse{Success: false, Error: "session not resolved"})
		return
	}

	// Upgrade only sends the header it is given, so cookies set by the
	// middleware (a new session id) are carried over here.
	header := http.Header{}
	for _, cookie := range c.Writer.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", cookie)
	}
	s.cookie.FlushPending(header, c.Request, sess)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	ctx, span := s.tracer.StartSpan(c.Request.Context(), observability.SpanStream)
	defer span.End()

	sc := &streamConn{
		conn:    conn,
		session: sess,
		send:    make(chan Frame, streamBuffer),
		done:    make(chan struct{}),
		logger:  logging.FromContext(ctx, s.logger),
		metrics: s.metrics,
	}
	s.metrics.StreamOpened()
	defer s.metrics.StreamClosed()

	unsubscribe := sess.Subscribe(func(change settings.Change) {
		for _, frame := range framesFor(change) {
			sc.enqueue(frame)
		}
	})
	defer unsubscribe()

	sc.enqueue(Frame{Type: FrameSettings, Content: sess.View()})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sc.writeLoop()
	}()
	sc.readLoop()
	sc.close()
	wg.Wait()
	_ = conn.Close()
}

func (sc *streamConn) readLoop() {
	sc.conn.SetReadLimit(streamMaxMessage)
	_ = sc.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	sc.conn.SetPongHandler(func(string) error {
		return sc.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		_, data, err := sc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.logger.Warn("stream read failed: %v", err)
			}
			return
		}
		var action settings.Action
		if err := jsonx.Unmarshal(data, &action); err != nil {
			sc.enqueue(Frame{Type: FrameError, Content: ErrorContent{Message: "invalid action: " + err.Error()}})
			continue
		}
		if _, err := sc.session.Dispatch(action); err != nil {
			sc.enqueue(Frame{Type: FrameError, Content: ErrorContent{Message: err.Error()}})
		}
	}
}

func (sc *streamConn) writeLoop() {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sc.done:
			_ = sc.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return
		case <-sc.session.Done():
			_ = sc.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session expired"),
				time.Now().Add(streamWriteWait))
			_ = sc.conn.Close()
			return
		case frame := <-sc.send:
			data, err := jsonx.Marshal(frame)
			if err != nil {
				sc.logger.Error("encode %s frame: %v", frame.Type, err)
				continue
			}
			_ = sc.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := sc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				sc.logger.Warn("stream write failed: %v", err)
				_ = sc.conn.Close()
				return
			}
			sc.metrics.FrameSent(frame.Type)
		case <-ticker.C:
			if err := sc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				_ = sc.conn.Close()
				return
			}
		}
	}
}
