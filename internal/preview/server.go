// Package preview streams a terrain graph to browser clients over a
// websocket and accepts graph edits from them.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"terragraph/internal/core"
	"terragraph/internal/graph"
	"terragraph/internal/grid"
	"terragraph/internal/node"
	"terragraph/internal/nodes"
	"terragraph/internal/worker"
)

var (
	// ErrUnknownCommand is returned for command types the server does not handle.
	ErrUnknownCommand = errors.New("preview: unknown command")
	// ErrStopped is returned by Do once Run has returned.
	ErrStopped = errors.New("preview: server stopped")
)

// Server owns the websocket clients of one engine. Every engine access is
// funneled through Run so the engine stays single-threaded.
type Server struct {
	engine   *graph.Engine
	output   graph.ID
	textures *core.TextureList
	stencils *core.StencilList

	calls    chan func(*graph.Engine)
	done     chan struct{}
	upgrader websocket.Upgrader
	throttle *core.Throttle

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *Message
}

// New registers a server as an observer of e. output is the node whose
// height and normal maps are streamed; it must implement nodes.Terminal.
// Texture and stencil commands are rejected when env lacks those lists.
func New(e *graph.Engine, output graph.ID, env node.Env) *Server {
	s := &Server{
		engine:   e,
		output:   output,
		textures: env.Textures,
		stencils: env.Stencils,
		calls:    make(chan func(*graph.Engine)),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		throttle: core.NewThrottle(10),
		clients:  map[*client]struct{}{},
	}
	e.Observe(s)
	return s
}

// Run drives the engine until ctx ends. It must be called once.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)
	return s.engine.Run(ctx, s.calls)
}

// Do executes fn on the engine goroutine and waits for it. It fails if ctx
// ends or Run returns before the call is picked up.
func (s *Server) Do(ctx context.Context, fn func(*graph.Engine)) error {
	done := make(chan struct{})
	call := func(e *graph.Engine) {
		defer close(done)
		fn(e)
	}
	select {
	case s.calls <- call:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Handler serves the websocket at /ws, Prometheus metrics at /metrics and a
// liveness probe at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// HandleWS upgrades the request and serves one client until it disconnects.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.Logger().Warn("preview: upgrade failed", "err", err)
		return
	}
	sw := NewSafeWriter(conn)
	c := newClient(sw)
	ctx := r.Context()
	log := core.Logger().With("remote", conn.RemoteAddr().String())
	log.Info("preview: client connected")
	go c.writeLoop()
	defer func() {
		s.removeClient(c)
		c.stop()
		log.Info("preview: client disconnected")
	}()

	// Registering on the engine goroutine queues the hello ahead of any
	// broadcast.
	err = s.Do(ctx, func(e *graph.Engine) {
		c.offer(graphMessage(e))
		if frame := s.lastFrame(); frame != nil {
			c.offer(*frame)
		}
		s.addClient(c)
	})
	if err != nil {
		return
	}

	for {
		var cmd Command
		if err := sw.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("preview: read failed", "err", err)
			}
			return
		}
		var reply Message
		if err := s.Do(ctx, func(e *graph.Engine) { reply = s.execute(e, cmd) }); err != nil {
			return
		}
		if !c.push(ctx, reply) {
			return
		}
	}
}

// execute applies cmd to e and returns the reply. It runs on the engine
// goroutine.
func (s *Server) execute(e *graph.Engine, cmd Command) Message {
	err := s.apply(e, cmd)
	if cmd.Type == CmdGraph && err == nil {
		msg := graphMessage(e)
		msg.Seq = cmd.Seq
		commandsTotal.WithLabelValues(cmd.Type, "ok").Inc()
		return msg
	}
	if err != nil {
		commandsTotal.WithLabelValues(cmd.Type, "error").Inc()
		core.Logger().Debug("preview: command rejected", "type", cmd.Type, "err", err)
		return Message{Type: MsgError, Seq: cmd.Seq, Error: err.Error()}
	}
	commandsTotal.WithLabelValues(cmd.Type, "ok").Inc()
	return Message{Type: MsgAck, Seq: cmd.Seq}
}

func (s *Server) apply(e *graph.Engine, cmd Command) error {
	id := graph.ID(cmd.Node)
	switch cmd.Type {
	case CmdGraph:
		return nil
	case CmdSetParameter:
		return e.SetParameterString(id, cmd.Key, cmd.Value)
	case CmdTrigger:
		return e.Trigger(id)
	case CmdCancel:
		if !e.Cancel(id) {
			return fmt.Errorf("preview: node %d has no running job", cmd.Node)
		}
		return nil
	case CmdRenderMode:
		e.SetRenderMode(cmd.Enabled)
		return nil
	case CmdResolution:
		if cmd.Preview > 0 {
			e.SetPreviewResolution(cmd.Preview)
		}
		if cmd.Render > 0 {
			e.SetRenderResolution(cmd.Render)
		}
		return nil
	case CmdAddNode:
		_, err := e.AddKind(cmd.Kind)
		return err
	case CmdRemoveNode:
		if id == s.output {
			return fmt.Errorf("preview: node %d is the streamed output", cmd.Node)
		}
		return e.Remove(id)
	case CmdConnect:
		_, err := e.Connect(graph.ID(cmd.From), cmd.FromSlot, graph.ID(cmd.To), cmd.ToSlot)
		return err
	case CmdDisconnect:
		return e.Disconnect(cmd.edge())
	case CmdLoadTexture:
		return s.loadTexture(e, cmd.Name, cmd.Data)
	case CmdLoadStencil:
		return s.loadStencil(cmd.Name, cmd.Data)
	case CmdStamp:
		return s.stamp(e, cmd)
	}
	return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Type)
}

// loadTexture decodes data into the texture list and recomputes every
// texture node that reads name.
func (s *Server) loadTexture(e *graph.Engine, name string, data []byte) error {
	if s.textures == nil {
		return errors.New("preview: textures are not available")
	}
	if name == "" {
		return errors.New("preview: texture needs a name")
	}
	if err := s.textures.Load(name, bytes.NewReader(data)); err != nil {
		return err
	}
	return s.refreshTextures(e, name)
}

// loadStencil decodes data into the stencil list under the name derived
// from file.
func (s *Server) loadStencil(file string, data []byte) error {
	if s.stencils == nil {
		return errors.New("preview: stencils are not available")
	}
	if file == "" {
		return errors.New("preview: stencil needs a name")
	}
	name, err := s.stencils.Load(file, bytes.NewReader(data))
	if err != nil {
		return err
	}
	core.Logger().Debug("preview: stencil loaded", "name", name)
	return nil
}

// stamp draws a stencil brush into a texture at (X, Y) and recomputes the
// texture nodes reading it. Size and Value default to the stencil diameter
// and color.
func (s *Server) stamp(e *graph.Engine, cmd Command) error {
	if s.textures == nil || s.stencils == nil {
		return errors.New("preview: textures are not available")
	}
	size := cmd.Size
	if size <= 0 {
		size = core.DefaultStencilDiameter
	}
	color := core.DefaultStencilColor
	if cmd.Value != "" {
		v, err := core.ParseVector(cmd.Value)
		if err != nil {
			return fmt.Errorf("preview: stamp color: %w", err)
		}
		color = v
	}
	brush, ok := s.stencils.Brush(cmd.Stencil, size, color)
	if !ok {
		return fmt.Errorf("preview: unknown stencil %q", cmd.Stencil)
	}
	if !s.textures.Stamp(cmd.Name, brush, cmd.X, cmd.Y) {
		return fmt.Errorf("preview: unknown texture %q", cmd.Name)
	}
	return s.refreshTextures(e, cmd.Name)
}

// refreshTextures recomputes every texture node that reads name.
func (s *Server) refreshTextures(e *graph.Engine, name string) error {
	for _, id := range e.Nodes() {
		n, _ := e.Node(id)
		if n.Kind() == "texture" && n.Params().Text("name") == name {
			if err := e.SetParameterString(id, "name", name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	clientsGauge.Inc()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		clientsGauge.Dec()
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) lastFrame() *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// broadcast queues msg for every client without waiting on any socket.
// Clients whose queue is full or stopped are dropped; their read loop
// notices the closed connection.
func (s *Server) broadcast(msg Message) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		if !c.offer(msg) {
			core.Logger().Debug("preview: dropping slow client", "type", msg.Type)
			s.removeClient(c)
			c.stop()
		}
	}
}

func (s *Server) ComputeStarted(id graph.ID, kind string) {
	s.throttle.Reset()
	s.broadcast(Message{Type: MsgStarted, Node: int(id), Kind: kind})
}

func (s *Server) ComputeProgress(id graph.ID, percent int) {
	if percent < 100 && !s.throttle.Allow() {
		return
	}
	s.broadcast(Message{Type: MsgProgress, Node: int(id), Percent: percent})
}

func (s *Server) ComputeFinished(id graph.ID, kind string, outcome worker.Outcome) {
	s.broadcast(Message{Type: MsgFinished, Node: int(id), Kind: kind, Outcome: outcome.String()})
	if id != s.output || outcome != worker.Done {
		return
	}
	frame, err := s.frame()
	if err != nil {
		core.Logger().Warn("preview: encode frame", "err", err)
		return
	}
	s.mu.Lock()
	s.last = &frame
	s.mu.Unlock()
	framesTotal.Inc()
	s.broadcast(frame)
}

// frame encodes the output node's maps as PNG.
func (s *Server) frame() (Message, error) {
	n, ok := s.engine.Node(s.output)
	if !ok {
		return Message{}, fmt.Errorf("preview: output node %d is gone", s.output)
	}
	t, ok := n.(nodes.Terminal)
	if !ok {
		return Message{}, fmt.Errorf("preview: %s node %d has no height and normal maps", n.Kind(), s.output)
	}
	var height, normal bytes.Buffer
	if err := grid.EncodeIntensity(&height, t.Height()); err != nil {
		return Message{}, err
	}
	if err := grid.EncodeVector(&normal, t.Normal()); err != nil {
		return Message{}, err
	}
	return Message{Type: MsgFrame, Node: int(s.output), Size: t.Height().W, Height: height.Bytes(), Normal: normal.Bytes()}, nil
}

var _ graph.Observer = (*Server)(nil)
