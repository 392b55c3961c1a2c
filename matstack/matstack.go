// Package matstack implements the named logical matrix stacks the renderer
// uses to derive view/projection state, generalizing
// original_source/src/math/MatrixStack.cpp's three fixed global stacks
// (Projection, Model, View) plus five virtual combinations onto one Stack
// value holding those same three base stacks, built on
// github.com/go-gl/mathgl/mgl64, in the style of
// viamrobotics-rdk/kinematics/kinmath's mgl64-based Transform.
package matstack

import "github.com/go-gl/mathgl/mgl64"

// Name identifies one of the base or derived logical stacks.
type Name int

// Base stacks may be pushed, popped and mutated directly. Derived
// ("virtual") stacks are read-only combinations recomputed from the base
// stacks on every Get, matching MatrixStack.cpp's ASSERT(n <= VIEW_STACK)
// guard against mutating a virtual stack.
const (
	Projection Name = iota
	Model
	View

	// Virtual stacks, computed on demand from Projection/Model/View.
	ModelView
	ModelViewProjection
	InvModel
	InvView
	InvModelView

	numBaseStacks = View + 1
)

// Stack holds one independent set of base stacks plus their virtual
// derivations, replacing MatrixStack's package-level static array with a
// constructed value so multiple renders (or tests) never share state.
type Stack struct {
	base [numBaseStacks][]mgl64.Mat4
}

// New returns a Stack with every base stack initialized to a single
// identity matrix, mirroring MatrixStack's static initializer.
func New() *Stack {
	s := &Stack{}
	for i := range s.base {
		s.base[i] = []mgl64.Mat4{mgl64.Ident4()}
	}
	return s
}

func (s *Stack) top(n Name) mgl64.Mat4 {
	stk := s.base[n]
	return stk[len(stk)-1]
}

func (s *Stack) setTop(n Name, m mgl64.Mat4) {
	stk := s.base[n]
	stk[len(stk)-1] = m
}

// Set replaces the top of base stack n. Panics if n is a virtual stack, the
// same contract as MatrixStack::set's ASSERT.
func (s *Stack) Set(n Name, m mgl64.Mat4) {
	s.requireBase(n)
	s.setTop(n, m)
}

// MulRight right-multiplies the top of base stack n by m: top = top * m.
func (s *Stack) MulRight(n Name, m mgl64.Mat4) {
	s.requireBase(n)
	s.setTop(n, s.top(n).Mul4(m))
}

// MulLeft left-multiplies the top of base stack n by m: top = m * top.
func (s *Stack) MulLeft(n Name, m mgl64.Mat4) {
	s.requireBase(n)
	s.setTop(n, m.Mul4(s.top(n)))
}

// Push duplicates the current top of base stack n.
func (s *Stack) Push(n Name) {
	s.requireBase(n)
	s.base[n] = append(s.base[n], s.top(n))
}

// PushIdentity pushes a fresh identity matrix onto base stack n.
func (s *Stack) PushIdentity(n Name) {
	s.requireBase(n)
	s.base[n] = append(s.base[n], mgl64.Ident4())
}

// Pop discards the top of base stack n. Panics if that would empty the
// stack, since every base stack always has an implicit identity floor.
func (s *Stack) Pop(n Name) {
	s.requireBase(n)
	stk := s.base[n]
	if len(stk) <= 1 {
		panic("matstack: cannot pop the base stack's identity floor")
	}
	s.base[n] = stk[:len(stk)-1]
}

// Get returns the current value of any base or virtual stack, recomputing
// virtual stacks from the base stacks' current tops on every call, matching
// MatrixStack::get's switch over StackName.
func (s *Stack) Get(n Name) mgl64.Mat4 {
	switch n {
	case Projection, Model, View:
		return s.top(n)
	case ModelView:
		return pseudoInvert(s.top(View)).Mul4(s.top(Model))
	case ModelViewProjection:
		return s.top(Projection).Mul4(pseudoInvert(s.top(View))).Mul4(s.top(Model))
	case InvModel:
		return pseudoInvert(s.top(Model))
	case InvView:
		return pseudoInvert(s.top(View))
	case InvModelView:
		return pseudoInvert(s.top(Model)).Mul4(s.top(View))
	default:
		panic("matstack: invalid stack name")
	}
}

func (s *Stack) requireBase(n Name) {
	if n >= numBaseStacks {
		panic("matstack: cannot manipulate a virtual stack directly")
	}
}

// pseudoInvert inverts a rigid transform (orthonormal rotation + translation)
// by transposing the rotation block and negating the translation through it,
// avoiding a full 4x4 Gauss-Jordan inverse for the common camera/model case,
// matching Mat4::pseudoInvert in original_source/src/math/Mat4.hpp.
func pseudoInvert(m mgl64.Mat4) mgl64.Mat4 {
	rot := m.Mat3()
	rotT := rot.Transpose()
	t := m.Col(3).Vec3()
	invT := rotT.Mul3x1(t).Mul(-1)

	return mgl64.Mat4FromCols(
		rotT.Col(0).Vec4(0),
		rotT.Col(1).Vec4(0),
		rotT.Col(2).Vec4(0),
		invT.Vec4(1),
	)
}
