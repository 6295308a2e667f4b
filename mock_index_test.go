package pimdb

import "fmt"

type User struct {
	BaseDocument
	Name  string   `json:"name"`
	Age   int      `json:"age"`
	Tags  []string `json:"tags,omitempty"`
	email string
}

func (u *User) String() string {
	return fmt.Sprintf("(%v, %v, %v)", u.ID, u.Name, u.Age)
}

func newUser(id, name string, age int) *User {
	return &User{BaseDocument: BaseDocument{ID: id}, Name: name, Age: age}
}

func ids[T Document](docs []T) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.GetID()
	}
	return out
}

// mockIndex is a minimal Index that refuses writes for chosen ids.
type mockIndex[T Document] struct {
	Store      map[string]T
	FailInsert map[string]bool
	FailUpdate map[string]bool
	Calls      []string
}

func newMockIndex[T Document]() *mockIndex[T] {
	return &mockIndex[T]{
		Store:      make(map[string]T),
		FailInsert: make(map[string]bool),
		FailUpdate: make(map[string]bool),
	}
}

func (m *mockIndex[T]) Insert(doc T) bool {
	id := doc.GetID()
	m.Calls = append(m.Calls, "insert "+id)
	if _, ok := m.Store[id]; ok || m.FailInsert[id] {
		return false
	}
	m.Store[id] = doc
	return true
}

func (m *mockIndex[T]) Update(doc T) bool {
	id := doc.GetID()
	m.Calls = append(m.Calls, "update "+id)
	if _, ok := m.Store[id]; !ok || m.FailUpdate[id] {
		return false
	}
	m.Store[id] = doc
	return true
}

func (m *mockIndex[T]) Delete(doc T) bool {
	id := doc.GetID()
	m.Calls = append(m.Calls, "delete "+id)
	if _, ok := m.Store[id]; !ok {
		return false
	}
	delete(m.Store, id)
	return true
}
