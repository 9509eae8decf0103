package object

// heapEntry is implemented by every heap-allocated Object variant
// (String, Error, Array, CompiledFunction, Closure). Null, Boolean,
// Integer, and Builtin are never heap-tracked: they are either
// singletons or stack-only values, so the mark/sweep pass skips them
// entirely (markObject/isMarked below simply no-op on anything that
// doesn't implement this interface).
type heapEntry interface {
	Object
	isMarked() bool
	setMarked(bool)
	references() []Object
}

// Heap tracks every object the VM has allocated that has not yet been
// swept, in allocation order (survivors of a sweep stay tracked), so a
// mark-sweep collector can reclaim unreachable payloads.
type Heap struct {
	objects []Object
}

// NewHeap constructs an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

// Track registers obj as heap-allocated and returns it unchanged, so
// call sites can wrap allocation in a single expression:
// arr := heap.Track(&Array{Elements: elems}).(*Array).
func (h *Heap) Track(obj Object) Object {
	h.objects = append(h.objects, obj)
	return obj
}

// Len reports the number of currently tracked (not necessarily live)
// objects; the VM consults this against a capacity threshold to decide
// when to trigger a collection.
func (h *Heap) Len() int {
	return len(h.objects)
}

// Mark walks every root, setting the mark bit on every heap object
// transitively reachable from it (arrays recurse into elements,
// closures recurse into their function and free variables).
func (h *Heap) Mark(roots []Object) {
	for _, root := range roots {
		markObject(root)
	}
}

func markObject(obj Object) {
	entry, ok := obj.(heapEntry)
	if !ok || obj == nil {
		return
	}
	if entry.isMarked() {
		return
	}
	entry.setMarked(true)
	for _, child := range entry.references() {
		markObject(child)
	}
}

// Sweep frees every unmarked object (dropping it from the tracked list)
// and clears the mark bit on every survivor, returning the number of
// objects freed.
func (h *Heap) Sweep() int {
	survivors := h.objects[:0]
	freed := 0
	for _, obj := range h.objects {
		entry, ok := obj.(heapEntry)
		if !ok {
			survivors = append(survivors, obj)
			continue
		}
		if entry.isMarked() {
			entry.setMarked(false)
			survivors = append(survivors, obj)
		} else {
			freed++
		}
	}
	h.objects = survivors
	return freed
}
