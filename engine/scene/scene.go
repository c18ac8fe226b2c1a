package scene

// Scene hosts helper objects in insertion order. It is single-threaded and
// meant to be driven from the frame loop.
type Scene struct {
	objects map[string]Object
	order   []string
}

func New() *Scene {
	return &Scene{objects: make(map[string]Object)}
}

// Add inserts obj. Adding an object twice is a no-op.
func (s *Scene) Add(obj Object) {
	if obj == nil {
		return
	}
	if _, ok := s.objects[obj.ID()]; ok {
		return
	}
	s.objects[obj.ID()] = obj
	s.order = append(s.order, obj.ID())
}

// Remove takes obj out of the scene without disposing it.
func (s *Scene) Remove(obj Object) bool {
	if obj == nil {
		return false
	}
	if _, ok := s.objects[obj.ID()]; !ok {
		return false
	}
	delete(s.objects, obj.ID())
	for i, id := range s.order {
		if id == obj.ID() {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Scene) Contains(obj Object) bool {
	if obj == nil {
		return false
	}
	_, ok := s.objects[obj.ID()]
	return ok
}

func (s *Scene) Len() int {
	return len(s.order)
}

// Count returns how many objects of kind are hosted.
func (s *Scene) Count(kind ObjectKind) int {
	n := 0
	for _, obj := range s.objects {
		if obj.Kind() == kind {
			n++
		}
	}
	return n
}

// Objects returns the hosted objects in insertion order.
func (s *Scene) Objects() []Object {
	out := make([]Object, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.objects[id])
	}
	return out
}

// Markers returns the hosted markers in insertion order.
func (s *Scene) Markers() []*Marker {
	var out []*Marker
	for _, id := range s.order {
		if m, ok := s.objects[id].(*Marker); ok {
			out = append(out, m)
		}
	}
	return out
}

// Dispose removes and disposes every object.
func (s *Scene) Dispose() {
	for _, id := range s.order {
		s.objects[id].Dispose()
	}
	s.objects = make(map[string]Object)
	s.order = nil
}
