package conference

// roster is an immutable snapshot of the conference members. Writers build
// a new roster under the conference mutex and publish it atomically, so
// muxers resolve member ids without taking the conference lock.
type roster struct {
	byID  map[uint32]*Member
	order []*Member
}

var emptyRoster = &roster{byID: map[uint32]*Member{}}

func (r *roster) get(id uint32) *Member {
	if r == nil || id == 0 {
		return nil
	}
	return r.byID[id]
}

func (r *roster) len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// with returns a copy of r with m appended in join order.
func (r *roster) with(m *Member) *roster {
	next := &roster{
		byID:  make(map[uint32]*Member, len(r.byID)+1),
		order: make([]*Member, 0, len(r.order)+1),
	}
	for id, v := range r.byID {
		next.byID[id] = v
	}
	next.byID[m.id] = m
	next.order = append(append(next.order, r.order...), m)
	return next
}

// without returns a copy of r lacking id.
func (r *roster) without(id uint32) *roster {
	next := &roster{
		byID:  make(map[uint32]*Member, len(r.byID)),
		order: make([]*Member, 0, len(r.order)),
	}
	for _, v := range r.order {
		if v.id == id {
			continue
		}
		next.byID[v.id] = v
		next.order = append(next.order, v)
	}
	return next
}
