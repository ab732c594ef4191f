package store

import "PerpIndexer/internal/entity"

type memoryKey struct {
	kind entity.Kind
	id   string
}

// Memory is the in-memory entity store. Entities are held by pointer, so
// a loaded entity can be mutated and re-saved by the same handler; Save
// additionally records the entity as dirty so a persistence worker can
// drain the writes after each event.
//
// Not thread-safe: only accessed from the single-threaded core.
type Memory struct {
	entities map[memoryKey]entity.Entity
	dirty    map[memoryKey]entity.Entity
}

func NewMemory() *Memory {
	return &Memory{
		entities: make(map[memoryKey]entity.Entity),
		dirty:    make(map[memoryKey]entity.Entity),
	}
}

func (m *Memory) Load(kind entity.Kind, id string) entity.Entity {
	return m.entities[memoryKey{kind, id}]
}

func (m *Memory) Save(e entity.Entity) {
	k := memoryKey{e.EntityKind(), e.EntityID()}
	m.entities[k] = e
	m.dirty[k] = e
}

// DrainDirty returns the entities saved since the previous drain and
// resets the dirty set.
func (m *Memory) DrainDirty() []entity.Entity {
	if len(m.dirty) == 0 {
		return nil
	}
	out := make([]entity.Entity, 0, len(m.dirty))
	for _, e := range m.dirty {
		out = append(out, e)
	}
	m.dirty = make(map[memoryKey]entity.Entity)
	return out
}

// Restore inserts an entity without marking it dirty, for loading
// persisted state on startup.
func (m *Memory) Restore(e entity.Entity) {
	m.entities[memoryKey{e.EntityKind(), e.EntityID()}] = e
}

// Len returns the number of stored entities.
func (m *Memory) Len() int {
	return len(m.entities)
}
