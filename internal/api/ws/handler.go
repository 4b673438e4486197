package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/snippetlab/internal/shared/id"
	"github.com/GriffinCanCode/snippetlab/internal/viewer"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the HTTP middleware
	},
}

// Lookup resolves snippet ids.
type Lookup interface {
	Get(id string) (catalog.Snippet, error)
}

// Message is a client request.
type Message struct {
	Type    string `json:"type"`
	Snippet string `json:"snippet,omitempty"`
}

// ResultFrame is pushed for every published cycle.
type ResultFrame struct {
	Type    string `json:"type"`
	Cycle   string `json:"cycle"`
	Snippet string `json:"snippet"`
	Kind    string `json:"kind"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Render serializes result HTML for the socket. Nil sends it unchanged.
type Render func(engine.Result) string

// Handler manages WebSocket stream connections. Each connection drives its
// own viewer, so selections on one socket never supersede another's.
type Handler struct {
	snippets Lookup
	eval     viewer.Evaluator
	render   Render
	timeout  time.Duration
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(snippets Lookup, eval viewer.Evaluator, render Render, timeout time.Duration, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if render == nil {
		render = engine.HTML
	}
	return &Handler{
		snippets: snippets,
		eval:     eval,
		render:   render,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	stream := id.NewStreamID()
	logger := h.logger.With(zap.String("stream", stream.String()))
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())

	// Only the newest frame matters, so a pending one is replaced
	frames := make(chan ResultFrame, 1)
	replies := make(chan any, 16)

	v := viewer.New(h.eval,
		viewer.WithTimeout(h.timeout),
		viewer.WithLogger(logger),
		viewer.WithMetrics(h.metrics),
		viewer.WithPublisher(func(f viewer.Frame) {
			frame := h.frameOf(f)
			select {
			case frames <- frame:
			default:
				select {
				case <-frames:
				default:
				}
				frames <- frame
			}
		}),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, conn, frames, replies, logger)
	}()
	defer func() {
		v.Close()
		cancel()
		wg.Wait()
	}()

	reply := func(m any) {
		select {
		case replies <- m:
		case <-ctx.Done():
		}
	}

	reply(gin.H{"type": "system", "message": "connected", "stream": stream})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		h.record("in", msg.Type)

		switch msg.Type {
		case "select":
			s, err := h.snippets.Get(msg.Snippet)
			if err != nil {
				reply(gin.H{"type": "error", "message": err.Error()})
				continue
			}
			cycle := v.Select(s)
			reply(gin.H{"type": "selected", "cycle": cycle, "snippet": s.ID})
		case "ping":
			reply(gin.H{"type": "pong"})
		default:
			reply(gin.H{"type": "error", "message": "unknown message type"})
		}
	}
}

func (h *Handler) frameOf(f viewer.Frame) ResultFrame {
	return ResultFrame{
		Type:    "result",
		Cycle:   f.Cycle.String(),
		Snippet: f.Snippet.ID,
		Kind:    string(f.Result.Kind()),
		HTML:    h.render(f.Result),
		Text:    engine.Text(f.Result),
	}
}

// writeLoop is the only writer on conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, frames <-chan ResultFrame, replies <-chan any, logger *zap.Logger) {
	send := func(kind string, v any) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			logger.Debug("WebSocket write failed", zap.Error(err))
			conn.Close()
			return false
		}
		h.record("out", kind)
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			if !send("result", f) {
				return
			}
		case r := <-replies:
			if !send("reply", r) {
				return
			}
		}
	}
}

func (h *Handler) record(direction, kind string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, kind)
	}
}
