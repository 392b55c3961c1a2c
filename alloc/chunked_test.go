package alloc

import (
	"errors"
	"testing"

	"go.viam.com/test"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

func TestPushBackAndAt(t *testing.T) {
	var c Chunked[int]
	for i := 0; i < 10000; i++ {
		idx := c.PushBack(i * 2)
		test.That(t, idx, test.ShouldEqual, i)
	}
	test.That(t, c.Len(), test.ShouldEqual, 10000)
	test.That(t, c.At(4097), test.ShouldEqual, 8194)
}

func TestFinalizeNoInsertions(t *testing.T) {
	var c Chunked[string]
	c.PushBack("a")
	c.PushBack("b")
	c.PushBack("c")

	out := c.Finalize()
	test.That(t, out, test.ShouldResemble, []string{"a", "b", "c"})
}

func TestFinalizeWithInsertions(t *testing.T) {
	var c Chunked[string]
	c.PushBack("a") // will end up at index 0
	c.PushBack("c") // will end up at index 2
	c.PushBack("e") // will end up at index 4

	c.Insert(1, "b")
	c.Insert(2, "d")

	out := c.Finalize()
	test.That(t, out, test.ShouldResemble, []string{"a", "b", "c", "d", "e"})
}

func TestFinalizeInsertAtHead(t *testing.T) {
	var c Chunked[int]
	c.PushBack(1)
	c.PushBack(2)
	c.Insert(0, 0)

	out := c.Finalize()
	test.That(t, out, test.ShouldResemble, []int{0, 1, 2})
}

func TestFinalizeInsertAtTail(t *testing.T) {
	var c Chunked[int]
	c.PushBack(0)
	c.PushBack(1)
	c.Insert(2, 2)

	out := c.Finalize()
	test.That(t, out, test.ShouldResemble, []int{0, 1, 2})
}

// TestFinalizeMultipleInsertionsAtSameIndex is scenario S2: pushing 1..1000
// then inserting at the same target index multiple times, followed by an
// earlier insertion, must not shift already-decided insertions relative to
// the untouched pushed values (this fails if Finalize gates its copy loop on
// the output index instead of the source index, since outIdx already
// includes previously-emitted insertions).
func TestFinalizeMultipleInsertionsAtSameIndex(t *testing.T) {
	var c Chunked[int]
	for i := 1; i <= 1000; i++ {
		c.PushBack(i)
	}
	c.Insert(250, 9001)
	c.Insert(250, 9002)
	c.Insert(0, 77)

	out := c.Finalize()

	want := make([]int, 0, 1004)
	want = append(want, 77)
	for i := 1; i <= 250; i++ {
		want = append(want, i)
	}
	want = append(want, 9001, 9002)
	for i := 251; i <= 1000; i++ {
		want = append(want, i)
	}

	test.That(t, out, test.ShouldResemble, want)
}

func TestInsertPastSizeReturnsInvalidIndex(t *testing.T) {
	var c Chunked[int]
	c.PushBack(0)
	c.PushBack(1)

	err := c.Insert(3, 99)
	test.That(t, err, test.ShouldNotBeNil)

	var invalidIdx *svoerr.InvalidIndex
	test.That(t, errors.As(err, &invalidIdx), test.ShouldBeTrue)
	test.That(t, invalidIdx.Idx, test.ShouldEqual, 3)
	test.That(t, invalidIdx.Size, test.ShouldEqual, 2)
}
