package sts

// group is the ordered id->payload membership behind the batch operations.
//
// Wire order inside a batch frame must be deterministic, so insertion order
// is preserved. Ids are unique: adding a member twice is rejected and the
// first payload is retained. The dirty flag marks the cached parameter block
// stale after any membership change.
type group struct {
	ids   []byte
	data  map[byte][]byte
	dirty bool
}

func newGroup() group {
	return group{data: make(map[byte][]byte)}
}

func (g *group) add(id byte, payload []byte) bool {
	if _, ok := g.data[id]; ok {
		return false
	}

	g.ids = append(g.ids, id)
	g.data[id] = payload
	g.dirty = true

	return true
}

func (g *group) set(id byte, payload []byte) bool {
	if _, ok := g.data[id]; !ok {
		return false
	}

	g.data[id] = payload
	g.dirty = true

	return true
}

func (g *group) remove(id byte) {
	if _, ok := g.data[id]; !ok {
		return
	}

	delete(g.data, id)
	for i, v := range g.ids {
		if v == id {
			g.ids = append(g.ids[:i], g.ids[i+1:]...)
			break
		}
	}
	g.dirty = true
}

func (g *group) clear() {
	g.ids = g.ids[:0]
	g.data = make(map[byte][]byte)
	g.dirty = true
}

func (g *group) contains(id byte) bool {
	_, ok := g.data[id]
	return ok
}

func (g *group) size() int { return len(g.ids) }
