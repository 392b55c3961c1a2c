package matstack

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"
)

func matAlmostEqual(t *testing.T, got, want mgl64.Mat4) {
	t.Helper()
	for i := 0; i < 16; i++ {
		test.That(t, got[i], test.ShouldAlmostEqual, want[i], 1e-9)
	}
}

func TestNewStartsAtIdentity(t *testing.T) {
	s := New()
	matAlmostEqual(t, s.Get(Projection), mgl64.Ident4())
	matAlmostEqual(t, s.Get(Model), mgl64.Ident4())
	matAlmostEqual(t, s.Get(View), mgl64.Ident4())
	matAlmostEqual(t, s.Get(ModelView), mgl64.Ident4())
}

func TestSetAndGetBaseStack(t *testing.T) {
	s := New()
	translate := mgl64.Translate3D(1, 2, 3)
	s.Set(Model, translate)
	matAlmostEqual(t, s.Get(Model), translate)
}

func TestPushPopRestoresPreviousTop(t *testing.T) {
	s := New()
	original := mgl64.Translate3D(1, 0, 0)
	s.Set(Model, original)

	s.Push(Model)
	s.Set(Model, mgl64.Translate3D(5, 5, 5))
	s.Pop(Model)

	matAlmostEqual(t, s.Get(Model), original)
}

func TestModelViewCombinesModelAndInverseView(t *testing.T) {
	s := New()
	s.Set(Model, mgl64.Translate3D(1, 0, 0))
	s.Set(View, mgl64.Translate3D(0, 2, 0))

	got := s.Get(ModelView)
	want := mgl64.Translate3D(0, -2, 0).Mul4(mgl64.Translate3D(1, 0, 0))
	matAlmostEqual(t, got, want)
}

func TestInvModelInvertsRigidTransform(t *testing.T) {
	s := New()
	m := mgl64.Translate3D(3, -1, 2)
	s.Set(Model, m)

	inv := s.Get(InvModel)
	roundTrip := inv.Mul4(m)
	matAlmostEqual(t, roundTrip, mgl64.Ident4())
}

func TestPopBaseFloorPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic popping the identity floor")
		}
	}()
	New().Pop(Model)
}

func TestSetVirtualStackPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic setting a virtual stack")
		}
	}()
	New().Set(ModelView, mgl64.Ident4())
}
