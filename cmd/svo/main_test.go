package main

import (
	"testing"

	"go.viam.com/test"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

func TestExitCodeForOutOfBudget(t *testing.T) {
	err := svoerr.NewOutOfBudget(1024)
	test.That(t, exitCodeFor(err), test.ShouldEqual, 2)
}

func TestExitCodeForCorruptOctree(t *testing.T) {
	err := svoerr.NewCorruptOctree("truncated block")
	test.That(t, exitCodeFor(err), test.ShouldEqual, 3)
}

func TestExitCodeForInvalidPly(t *testing.T) {
	err := svoerr.NewInvalidPly("no faces")
	test.That(t, exitCodeFor(err), test.ShouldEqual, 3)
}

func TestExitCodeForGenericArgumentError(t *testing.T) {
	test.That(t, exitCodeFor(errGeneric()), test.ShouldEqual, 1)
}

func errGeneric() error {
	return &genericErr{"bad arguments"}
}

type genericErr struct{ msg string }

func (e *genericErr) Error() string { return e.msg }
