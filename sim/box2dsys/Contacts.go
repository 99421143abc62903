package box2dsys

import (
	"github.com/ByteArena/box2d"
)

// contactDetector counts the contacts touching each body and disables
// contacts between pairs of bodies that are not allowed to collide
type contactDetector struct {
	sys *System
}

func newContactDetector(s *System) *contactDetector {
	return &contactDetector{s}
}

// bodies returns the indices of the two bodies in a contact
func (c *contactDetector) bodies(contact box2d.B2ContactInterface) (int, int,
	bool) {
	a, okA := c.sys.index[contact.GetFixtureA().GetBody()]
	b, okB := c.sys.index[contact.GetFixtureB().GetBody()]
	return a, b, okA && okB
}

// allowed reports whether two bodies may collide. With no explicit
// collision pairs every pair of bodies collides.
func (c *contactDetector) allowed(a, b int) bool {
	if len(c.sys.collide) == 0 {
		return true
	}
	return c.sys.collide[[2]int{a, b}]
}

func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	a, b, ok := c.bodies(contact)
	if !ok || !c.allowed(a, b) {
		return
	}
	c.sys.contacts[a]++
	c.sys.contacts[b]++
}

func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {
	a, b, ok := c.bodies(contact)
	if !ok || !c.allowed(a, b) {
		return
	}
	if c.sys.contacts[a] > 0 {
		c.sys.contacts[a]--
	}
	if c.sys.contacts[b] > 0 {
		c.sys.contacts[b]--
	}
}

func (c *contactDetector) PreSolve(contact box2d.B2ContactInterface,
	oldManifold box2d.B2Manifold) {
	if a, b, ok := c.bodies(contact); ok && !c.allowed(a, b) {
		contact.SetEnabled(false)
	}
}

func (c *contactDetector) PostSolve(contact box2d.B2ContactInterface,
	impulse *box2d.B2ContactImpulse) {
}
