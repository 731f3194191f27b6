// Package typegraph computes reachability between registered message types.
// The facade uses it to decide which struct fields need pointer indirection
// when binding recursive messages.
package typegraph

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/wirelite/wirelite/schema"
)

// Resolver looks up message definitions by name. A schema registry
// satisfies it directly.
type Resolver interface {
	GetMessage(name string) (*schema.Message, error)
}

// Graph describes every message type reachable from one root, in first
// encounter order, and whether any field path leads back to the root.
type Graph struct {
	root      string
	types     []string
	typeSet   map[string]struct{}
	recursive bool
}

// Root returns the type the graph was built from.
func (g *Graph) Root() string { return g.root }

// Types returns the reachable message type names, root first. The slice is
// shared with the graph, callers must not modify it.
func (g *Graph) Types() []string { return g.types }

// Contains reports whether name is reachable from the root.
func (g *Graph) Contains(name string) bool {
	_, ok := g.typeSet[name]
	return ok
}

// Recursive reports whether some field path leads from the root back to
// itself.
func (g *Graph) Recursive() bool { return g.recursive }

// Analyzer computes and caches type graphs. Safe for concurrent use over a
// registry that is no longer being mutated.
type Analyzer struct {
	resolver Resolver
	graphs   *xsync.Map[string, *Graph]
}

// New creates an analyzer over the given resolver.
func New(resolver Resolver) *Analyzer {
	return &Analyzer{
		resolver: resolver,
		graphs:   xsync.NewMap[string, *Graph](),
	}
}

// Graph returns the type graph rooted at the named message. Graphs are
// cached per root. Type names the resolver cannot find stay in the graph
// as leaves; analysis never fails.
func (a *Analyzer) Graph(root string) *Graph {
	if g, ok := a.graphs.Load(root); ok {
		return g
	}
	g := a.analyze(root)
	a.graphs.Store(root, g)
	return g
}

// analyze walks the field references depth first. Type identity follows the
// names written in the schema, so the visited set doubles as the cycle
// guard and the traversal terminates on any graph.
func (a *Analyzer) analyze(root string) *Graph {
	g := &Graph{
		root:    root,
		typeSet: make(map[string]struct{}),
	}

	var walk func(name string)
	walk = func(name string) {
		if _, seen := g.typeSet[name]; seen {
			return
		}
		g.typeSet[name] = struct{}{}
		g.types = append(g.types, name)

		msg, err := a.resolver.GetMessage(name)
		if err != nil {
			return // unresolved name stays a leaf
		}
		for _, ref := range messageRefs(msg) {
			if ref == root {
				g.recursive = true
			}
			walk(ref)
		}
	}
	walk(root)
	return g
}

// messageRefs collects the message type names a message's fields point at.
// Wrapper fields are opaque scalars here and contribute no edges.
func messageRefs(msg *schema.Message) []string {
	var refs []string
	var fromType func(ft *schema.FieldType)
	fromType = func(ft *schema.FieldType) {
		switch ft.Kind {
		case schema.KindMessage:
			refs = append(refs, ft.MessageType)
		case schema.KindMap:
			if ft.MapKey != nil {
				fromType(ft.MapKey)
			}
			if ft.MapValue != nil {
				fromType(ft.MapValue)
			}
		}
	}

	for _, field := range msg.Fields {
		fromType(&field.Type)
	}
	for _, group := range msg.OneofGroups {
		for _, field := range group.Fields {
			fromType(&field.Type)
		}
	}
	return refs
}
