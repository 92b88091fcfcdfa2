package preview

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"terragraph/internal/core"
	"terragraph/internal/graph"
	"terragraph/internal/grid"
	"terragraph/internal/node"
	"terragraph/internal/nodes"
)

type fixture struct {
	srv    *Server
	http   *httptest.Server
	noise  graph.ID
	output graph.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := node.Env{Settings: core.NewSettings(8, 16), Textures: core.NewTextureList(), Stencils: core.NewStencilList()}
	e := graph.New(nodes.NewCatalog(env))
	noise, err := e.AddKind("noise")
	if err != nil {
		t.Fatalf("AddKind(noise): %v", err)
	}
	output, err := e.AddKind("output")
	if err != nil {
		t.Fatalf("AddKind(output): %v", err)
	}
	if _, err := e.Connect(noise, 0, output, 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	f := &fixture{noise: noise, output: output}
	f.srv = New(e, output, env)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = f.srv.Run(ctx)
	}()
	f.http = httptest.NewServer(f.srv.Handler())
	t.Cleanup(func() {
		f.http.Close()
		cancel()
		<-stopped
		e.Close()
	})
	return f
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// await reads messages until one of type typ arrives.
func await(t *testing.T, conn *websocket.Conn, typ string) Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

// send writes cmd and returns the reply carrying its seq.
func send(t *testing.T, conn *websocket.Conn, cmd Command) Message {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for reply to %s: %v", cmd.Type, err)
		}
		if msg.Seq == cmd.Seq && (msg.Type == MsgAck || msg.Type == MsgError || msg.Type == MsgGraph) {
			return msg
		}
	}
}

func TestHelloDescribesGraph(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	msg := await(t, conn, MsgGraph)
	if len(msg.Nodes) != 2 || len(msg.Edges) != 1 {
		t.Fatalf("graph has %d nodes and %d edges, want 2 and 1", len(msg.Nodes), len(msg.Edges))
	}
	if msg.Nodes[0].Kind != "noise" || msg.Nodes[1].Kind != "output" {
		t.Fatalf("unexpected kinds %+v", msg.Nodes)
	}
	if msg.Edges[0].From != int(f.noise) || msg.Edges[0].To != int(f.output) {
		t.Fatalf("unexpected edge %+v", msg.Edges[0])
	}
}

func TestFrameIsPNG(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	// Frames computed before the noise job lands are 1x1.
	msg := await(t, conn, MsgFrame)
	for msg.Size != 8 {
		msg = await(t, conn, MsgFrame)
	}
	for name, data := range map[string][]byte{"height": msg.Height, "normal": msg.Normal} {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
			t.Fatalf("%s bounds = %v", name, b)
		}
	}
}

func TestSetParameterProducesNewFrame(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	await(t, conn, MsgGraph)

	reply := send(t, conn, Command{Type: CmdSetParameter, Seq: 1, Node: int(f.noise), Key: "octaves", Value: "2"})
	if reply.Type != MsgAck {
		t.Fatalf("reply = %+v, want ack", reply)
	}
	done := await(t, conn, MsgFinished)
	if done.Node != int(f.noise) && done.Node != int(f.output) {
		t.Fatalf("finished for unexpected node %d", done.Node)
	}
	await(t, conn, MsgFrame)

	reply = send(t, conn, Command{Type: CmdGraph, Seq: 2})
	if reply.Type != MsgGraph {
		t.Fatalf("reply = %+v, want graph", reply)
	}
	p, ok := reply.Nodes[0].Params.Lookup("octaves")
	if !ok || p.Value != "2" {
		t.Fatalf("octaves = %+v, %v", p, ok)
	}
}

func TestCommandErrors(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	await(t, conn, MsgGraph)

	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{"unknown type", Command{Type: "explode"}, "unknown command"},
		{"bad value", Command{Type: CmdSetParameter, Node: int(f.noise), Key: "basis", Value: "worley"}, "noise"},
		{"unknown node", Command{Type: CmdTrigger, Node: 99}, "unknown node"},
		{"not triggerable", Command{Type: CmdTrigger, Node: int(f.noise)}, "trigger"},
		{"cycle", Command{Type: CmdConnect, From: int(f.output), To: int(f.noise)}, ""},
		{"remove output", Command{Type: CmdRemoveNode, Node: int(f.output)}, "streamed output"},
		{"texture without name", Command{Type: CmdLoadTexture}, "name"},
	}
	for i, tc := range cases {
		tc.cmd.Seq = i + 1
		reply := send(t, conn, tc.cmd)
		if reply.Type != MsgError {
			t.Fatalf("%s: reply = %+v, want error", tc.name, reply)
		}
		if !strings.Contains(reply.Error, tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, reply.Error, tc.want)
		}
	}
}

func TestLoadTextureRecomputesTextureNodes(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	await(t, conn, MsgGraph)

	add := send(t, conn, Command{Type: CmdAddNode, Seq: 1, Kind: "texture"})
	if add.Type != MsgAck {
		t.Fatalf("add_node reply = %+v", add)
	}
	g := send(t, conn, Command{Type: CmdGraph, Seq: 2})
	id := g.Nodes[len(g.Nodes)-1].ID
	if r := send(t, conn, Command{Type: CmdSetParameter, Seq: 3, Node: id, Key: "name", Value: "red"}); r.Type != MsgAck {
		t.Fatalf("set name reply = %+v", r)
	}

	red := grid.NewFilled(2, 2, mgl64.Vec4{1, 0, 0, 1})
	var buf bytes.Buffer
	if err := grid.EncodeVector(&buf, red); err != nil {
		t.Fatalf("EncodeVector: %v", err)
	}
	if r := send(t, conn, Command{Type: CmdLoadTexture, Seq: 4, Name: "red", Data: buf.Bytes()}); r.Type != MsgAck {
		t.Fatalf("load_texture reply = %+v", r)
	}

	var tex *grid.Vector
	err := f.srv.Do(context.Background(), func(e *graph.Engine) {
		v, _ := e.Output(graph.ID(id), 0)
		tex = v.Vector
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if tex.W != 8 || tex.At(3, 3)[0] < 0.99 {
		t.Fatalf("texture node did not pick up the upload: %dx%d %v", tex.W, tex.H, tex.At(3, 3))
	}
}

func TestMetricsAndHealth(t *testing.T) {
	f := newFixture(t)
	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "terragraph_preview_clients",
	} {
		resp, err := http.Get(f.http.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Fatalf("GET %s = %d %q", path, resp.StatusCode, body)
		}
	}
}

func TestDoAfterStop(t *testing.T) {
	env := node.Env{Settings: core.NewSettings(4, 4)}
	e := graph.New(nodes.NewCatalog(env))
	defer e.Close()
	s := New(e, 0, env)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = s.Run(ctx)
	if err := s.Do(context.Background(), func(*graph.Engine) {}); err != ErrStopped {
		t.Fatalf("Do after stop = %v, want ErrStopped", err)
	}
}

// stalledWriter blocks every write until it is closed.
type stalledWriter struct {
	closed chan struct{}
	once   sync.Once
}

func (w *stalledWriter) WriteJSON(any) error {
	<-w.closed
	return websocket.ErrCloseSent
}

func (w *stalledWriter) Close() error {
	w.once.Do(func() { close(w.closed) })
	return nil
}

func TestBroadcastSkipsStalledClient(t *testing.T) {
	env := node.Env{Settings: core.NewSettings(4, 4)}
	e := graph.New(nodes.NewCatalog(env))
	defer e.Close()
	s := New(e, 0, env)

	stalled := &stalledWriter{closed: make(chan struct{})}
	slow := newClient(stalled)
	go slow.writeLoop()
	s.addClient(slow)

	var got []Message
	var mu sync.Mutex
	healthy := newClient(writerFunc(func(v any) error {
		mu.Lock()
		got = append(got, v.(Message))
		mu.Unlock()
		return nil
	}))
	go healthy.writeLoop()
	defer healthy.stop()
	s.addClient(healthy)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4*sendQueue; i++ {
			s.broadcast(Message{Type: MsgProgress, Percent: i % 100})
			// Let the healthy writer keep up.
			for len(healthy.send) > sendQueue/2 {
				time.Sleep(time.Millisecond)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("broadcast blocked on a client that never drains")
	}

	select {
	case <-stalled.closed:
	default:
		t.Fatalf("stalled client was not closed")
	}
	if n := s.Clients(); n != 1 {
		t.Fatalf("clients = %d, want only the healthy one", n)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 4*sendQueue {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("healthy client received %d of %d messages", n, 4*sendQueue)
		}
		time.Sleep(time.Millisecond)
	}
}

type writerFunc func(v any) error

func (f writerFunc) WriteJSON(v any) error { return f(v) }
func (f writerFunc) Close() error          { return nil }

func TestStampStencilIntoTexture(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	await(t, conn, MsgGraph)

	if r := send(t, conn, Command{Type: CmdAddNode, Seq: 1, Kind: "texture"}); r.Type != MsgAck {
		t.Fatalf("add_node reply = %+v", r)
	}
	g := send(t, conn, Command{Type: CmdGraph, Seq: 2})
	id := g.Nodes[len(g.Nodes)-1].ID
	if r := send(t, conn, Command{Type: CmdSetParameter, Seq: 3, Node: id, Key: "name", Value: "canvas"}); r.Type != MsgAck {
		t.Fatalf("set name reply = %+v", r)
	}

	var buf bytes.Buffer
	if err := grid.EncodeVector(&buf, grid.NewFilled(8, 8, mgl64.Vec4{0, 0, 0, 0})); err != nil {
		t.Fatalf("EncodeVector: %v", err)
	}
	if r := send(t, conn, Command{Type: CmdLoadTexture, Seq: 4, Name: "canvas", Data: buf.Bytes()}); r.Type != MsgAck {
		t.Fatalf("load_texture reply = %+v", r)
	}
	buf.Reset()
	if err := grid.EncodeVector(&buf, grid.NewFilled(4, 4, mgl64.Vec4{1, 1, 1, 1})); err != nil {
		t.Fatalf("EncodeVector: %v", err)
	}
	if r := send(t, conn, Command{Type: CmdLoadStencil, Seq: 5, Name: "solid-square.png", Data: buf.Bytes()}); r.Type != MsgAck {
		t.Fatalf("load_stencil reply = %+v", r)
	}

	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{"unknown stencil", Command{Type: CmdStamp, Name: "canvas", Stencil: "nope"}, "stencil"},
		{"unknown texture", Command{Type: CmdStamp, Name: "nope", Stencil: "solid square"}, "texture"},
		{"bad color", Command{Type: CmdStamp, Name: "canvas", Stencil: "solid square", Value: "red"}, "color"},
	}
	for i, tc := range cases {
		tc.cmd.Seq = 10 + i
		if r := send(t, conn, tc.cmd); r.Type != MsgError || !strings.Contains(r.Error, tc.want) {
			t.Fatalf("%s: reply = %+v", tc.name, r)
		}
	}

	r := send(t, conn, Command{Type: CmdStamp, Seq: 20, Name: "canvas", Stencil: "solid square", X: 4, Y: 4, Size: 4, Value: "0,1,0,1"})
	if r.Type != MsgAck {
		t.Fatalf("stamp reply = %+v", r)
	}

	var tex *grid.Vector
	err := f.srv.Do(context.Background(), func(e *graph.Engine) {
		v, _ := e.Output(graph.ID(id), 0)
		tex = v.Vector
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if c := tex.At(4, 4); c[1] < 0.99 || c[3] < 0.99 {
		t.Fatalf("stamped texel = %v", c)
	}
	if c := tex.At(0, 0); c[3] != 0 {
		t.Fatalf("texel outside the stamp = %v", c)
	}
}
