package preview

import (
	"terragraph/internal/core"
	"terragraph/internal/graph"
)

// Command types accepted from clients.
const (
	CmdGraph        = "graph"
	CmdSetParameter = "set_parameter"
	CmdTrigger      = "trigger"
	CmdCancel       = "cancel"
	CmdRenderMode   = "render_mode"
	CmdResolution   = "resolution"
	CmdAddNode      = "add_node"
	CmdRemoveNode   = "remove_node"
	CmdConnect      = "connect"
	CmdDisconnect   = "disconnect"
	CmdLoadTexture  = "load_texture"
	CmdLoadStencil  = "load_stencil"
	CmdStamp        = "stamp"
)

// Message types sent to clients.
const (
	MsgGraph    = "graph"
	MsgAck      = "ack"
	MsgError    = "error"
	MsgStarted  = "started"
	MsgProgress = "progress"
	MsgFinished = "finished"
	MsgFrame    = "frame"
)

// Command is a client request. Fields not used by Type are ignored. Seq is
// echoed in the reply.
type Command struct {
	Type string `json:"type"`
	Seq  int    `json:"seq,omitempty"`

	Node  int    `json:"node,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`

	Enabled bool `json:"enabled,omitempty"`
	Preview int  `json:"preview,omitempty"`
	Render  int  `json:"render,omitempty"`

	From     int `json:"from,omitempty"`
	FromSlot int `json:"from_slot,omitempty"`
	To       int `json:"to,omitempty"`
	ToSlot   int `json:"to_slot,omitempty"`

	Name string `json:"name,omitempty"`
	Data []byte `json:"data,omitempty"`

	Stencil string `json:"stencil,omitempty"`
	X       int    `json:"x,omitempty"`
	Y       int    `json:"y,omitempty"`
	Size    int    `json:"size,omitempty"`
}

func (c Command) edge() graph.Edge {
	return graph.Edge{From: graph.ID(c.From), FromSlot: c.FromSlot, To: graph.ID(c.To), ToSlot: c.ToSlot}
}

// Message is sent to clients. Height and Normal carry PNG images.
type Message struct {
	Type  string `json:"type"`
	Seq   int    `json:"seq,omitempty"`
	Error string `json:"error,omitempty"`

	Node    int    `json:"node,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Percent int    `json:"percent,omitempty"`
	Outcome string `json:"outcome,omitempty"`

	Nodes []NodeInfo `json:"nodes,omitempty"`
	Edges []EdgeInfo `json:"edges,omitempty"`

	Size   int    `json:"size,omitempty"`
	Height []byte `json:"height,omitempty"`
	Normal []byte `json:"normal,omitempty"`
}

// NodeInfo describes one node in a graph message.
type NodeInfo struct {
	ID     int                    `json:"id"`
	Kind   string                 `json:"kind"`
	Params core.ParameterSnapshot `json:"params"`
}

// EdgeInfo describes one edge in a graph message.
type EdgeInfo struct {
	From     int `json:"from"`
	FromSlot int `json:"from_slot"`
	To       int `json:"to"`
	ToSlot   int `json:"to_slot"`
}

func graphMessage(e *graph.Engine) Message {
	msg := Message{Type: MsgGraph}
	for _, id := range e.Nodes() {
		n, _ := e.Node(id)
		msg.Nodes = append(msg.Nodes, NodeInfo{ID: int(id), Kind: n.Kind(), Params: n.Params().Snapshot(n.Kind())})
	}
	for _, edge := range e.Edges() {
		msg.Edges = append(msg.Edges, EdgeInfo{
			From: int(edge.From), FromSlot: edge.FromSlot,
			To: int(edge.To), ToSlot: edge.ToSlot,
		})
	}
	return msg
}
