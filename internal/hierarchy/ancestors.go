package hierarchy

// AncestorComputer walks base classes and interfaces of a type.
type AncestorComputer struct {
	index AncestorIndex
}

// NewAncestorComputer creates a computer over index.
func NewAncestorComputer(index AncestorIndex) *AncestorComputer {
	return &AncestorComputer{index: index}
}

// Compute returns every ancestor of origin, depth-first in pre-order: the
// superclass subtree first, then declared interfaces in declaration order.
// A type reachable along several paths is emitted once, at the level of its
// first visit. The universal root type is never emitted.
//
// Compute does not block and needs no context.
func (c *AncestorComputer) Compute(origin TypeDescriptor) Closure {
	if origin == nil || c.index == nil {
		return nil
	}
	b := newClosureBuilder()
	b.seen(origin)
	c.walk(origin, 0, b)
	return b.result
}

func (c *AncestorComputer) walk(current TypeDescriptor, level int, b *closureBuilder) {
	next := level + 1

	if current.Kind() != KindInterface {
		if super := c.index.Superclass(current); super != nil && !c.index.IsUniversalRoot(super) {
			if b.add(super, next) {
				c.walk(super, next, b)
			}
		}
	}

	for _, iface := range c.index.DeclaredInterfaces(current) {
		if iface == nil || c.index.IsUniversalRoot(iface) {
			continue
		}
		if b.add(iface, next) {
			c.walk(iface, next, b)
		}
	}
}
