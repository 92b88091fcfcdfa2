package nodes

import (
	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func init() { register("texture", newTexture) }

// Texture reads a named image from the texture list, resized to the
// generation resolution. A missing texture yields a 1x1 zero vector.
type Texture struct {
	node.Base
}

func newTexture(env node.Env) node.Node {
	return &Texture{Base: node.NewBase("texture", env, nil,
		ports(vectorPort("Out")),
		core.StringSpec("name", "Texture", ""),
	)}
}

func (n *Texture) UsesResolution() bool { return true }

func (n *Texture) Compute() {
	var tex *grid.Vector
	if n.Env.Textures != nil {
		tex, _ = n.Env.Textures.Get(n.Params().Text("name"))
	}
	if tex.Empty() {
		n.Publish(0, node.VectorValue(grid.New[mgl64.Vec4](1, 1)))
		return
	}
	res := n.Resolution()
	n.Publish(0, node.VectorValue(grid.ScaledVector(tex, res, res)))
}
