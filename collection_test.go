package pimdb

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usersFixture struct {
	users *Collection[*User]
	age   *SortedIndex[*User]
	name  *SubstringIndex[*User]
}

func newUsers(t *testing.T) usersFixture {
	t.Helper()
	f := usersFixture{
		age:  MustSortedIndex[*User]("age"),
		name: MustSubstringIndex[*User]("name"),
	}
	users, err := NewCollection(NewPrimaryIndex[*User](), map[string]Index[*User]{
		"age":  f.age,
		"name": f.name,
	})
	require.NoError(t, err)
	f.users = users
	return f
}

func (f usersFixture) seed(t *testing.T) {
	t.Helper()
	require.True(t, f.users.Insert(newUser("1", "Alice", 30)))
	require.True(t, f.users.Insert(newUser("2", "Bob", 25)))
	require.True(t, f.users.Insert(newUser("3", "Charlie", 35)))
}

func TestNewCollection(t *testing.T) {
	_, err := NewCollection[*User](nil, nil)
	assert.ErrorIs(t, err, ErrNoPrimaryIndex)
	assert.Panics(t, func() { MustCollection[*User](nil, nil) })

	_, err = NewCollection(NewPrimaryIndex[*User](), map[string]Index[*User]{"age": nil})
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = NewCollection(NewPrimaryIndex[*User](), map[string]Index[*User]{"age": (*SortedIndex[*User])(nil)})
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = NewCollection(NewPrimaryIndex[*User](), map[string]Index[*User]{"name": (*SubstringIndex[*User])(nil)})
	assert.ErrorIs(t, err, ErrInvalidIndex)

	p := NewPrimaryIndex[*User]()
	_, err = NewCollection(p, map[string]Index[*User]{"again": p})
	assert.ErrorIs(t, err, ErrInvalidIndex)

	c, err := NewCollection(NewPrimaryIndex[*User](), nil)
	require.NoError(t, err)
	require.True(t, c.Insert(newUser("1", "Alice", 30)))
	assert.Equal(t, 1, c.Len())
	assert.Empty(t, c.IndexNames())
}

func TestCollectionScenario(t *testing.T) {
	f := newUsers(t)
	f.seed(t)
	assert.Equal(t, []string{"age", "name"}, f.users.IndexNames())

	alice, ok := f.users.Primary().Get("1")
	require.True(t, ok)
	assert.Equal(t, "Alice", alice.Name)

	thirties, err := f.age.FindInRange(Range{GTE: 30, LTE: 39})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(thirties))

	// Update with a fresh instance.
	require.True(t, f.users.Update(newUser("1", "Alice", 31)))
	assert.Equal(t, 31, alice.Age, "the stored instance is updated in place")
	thirties, err = f.age.FindInRange(Range{GTE: 30, LTE: 39})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "3"}, ids(thirties))
	assert.Same(t, alice, thirties[0])
	assert.Equal(t, 31, thirties[0].Age)

	// Move Alice past Charlie.
	require.True(t, f.users.Update(newUser("1", "Alice", 36)))
	thirties, _ = f.age.FindInRange(Range{GTE: 30, LTE: 39})
	assert.Equal(t, []string{"3", "1"}, ids(thirties))

	require.True(t, f.users.Delete("2"))
	_, ok = f.users.Primary().Get("2")
	assert.False(t, ok)
	twenties, err := f.age.FindInRange(Range{GTE: 20, LTE: 29})
	require.NoError(t, err)
	assert.Empty(t, twenties)
	assert.False(t, f.users.Delete("2"))

	for _, q := range []string{"ali", "ALI", "Ali"} {
		assert.Equal(t, []string{"1"}, ids(f.name.Search(q)), q)
	}
	assert.Equal(t, []string{"1", "3"}, ids(f.users.Primary().All()))
}

func TestCollectionInsertRejects(t *testing.T) {
	f := newUsers(t)
	f.seed(t)
	assert.False(t, f.users.Insert(newUser("1", "Again", 1)), "duplicate id")
	assert.False(t, f.users.Insert(newUser("", "Anonymous", 1)), "empty id")
	assert.Equal(t, 3, f.users.Len())
	assert.Equal(t, 3, f.age.Len())
	assert.Equal(t, 3, f.name.Len())
	assert.False(t, f.users.Update(newUser("9", "Ghost", 1)))
}

func TestCollectionInsertRollback(t *testing.T) {
	f := newUsers(t)
	mock := newMockIndex[*User]()
	mock.FailInsert["x"] = true
	require.NoError(t, f.users.AddIndex("mock", mock))
	assert.Equal(t, []string{"age", "mock", "name"}, f.users.IndexNames())
	f.seed(t)

	assert.False(t, f.users.Insert(newUser("x", "Xavier", 30)))
	_, ok := f.users.Get("x")
	assert.False(t, ok)
	assert.Equal(t, []string{"2", "1", "3"}, ids(f.age.All()), "age index was rolled back")
	assert.Equal(t, []string{"1", "2", "3"}, ids(f.name.Search("")), "name index was never written")
	assert.NotContains(t, mock.Store, "x")

	// The id is free again once the failure goes away.
	delete(mock.FailInsert, "x")
	require.True(t, f.users.Insert(newUser("x", "Xavier", 30)))
	assert.Equal(t, []string{"1", "x"}, ids(f.age.Find(30)))
}

func TestCollectionUpdateRollback(t *testing.T) {
	f := newUsers(t)
	mock := newMockIndex[*User]()
	require.NoError(t, f.users.AddIndex("mock", mock))
	f.seed(t)
	alice, _ := f.users.Get("1")

	mock.FailUpdate["1"] = true
	assert.False(t, f.users.Update(newUser("1", "Alicia", 40)))

	assert.Equal(t, "Alice", alice.Name, "stored fields are restored")
	assert.Equal(t, 30, alice.Age)
	assert.Equal(t, []string{"1"}, ids(f.age.Find(30)))
	assert.Empty(t, f.age.Find(40))
	assert.Equal(t, []string{"1"}, ids(f.name.Search("alice")))
	assert.Empty(t, f.name.Search("alicia"))
	assert.Equal(t, "update 1", mock.Calls[len(mock.Calls)-1])

	delete(mock.FailUpdate, "1")
	require.True(t, f.users.Update(newUser("1", "Alicia", 40)))
	assert.Equal(t, []string{"1"}, ids(f.age.Find(40)))
	assert.Equal(t, []string{"1"}, ids(f.name.Search("alicia")))
}

func TestCollectionRecordRollback(t *testing.T) {
	age := MustSortedIndex[Record]("age")
	name := MustSubstringIndex[Record]("name")
	c := MustCollection(NewPrimaryIndex[Record](), map[string]Index[Record]{"age": age, "name": name})

	require.True(t, c.Insert(Record{"id": "1", "name": "Alice", "age": 30}))
	assert.False(t, c.Insert(Record{"id": "2", "name": "Bob"}), "no age to sort by")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, age.Len())
	assert.Equal(t, 1, name.Len())

	assert.False(t, c.Update(Record{"id": "1", "age": 31}), "no name to search by")
	stored, _ := c.Get("1")
	assert.Equal(t, Record{"id": "1", "name": "Alice", "age": 30}, stored)
	assert.Equal(t, []string{"1"}, ids(age.Find(30)))
	assert.Empty(t, age.Find(31))
}

func TestCollectionUpdateEditedRecord(t *testing.T) {
	age := MustSortedIndex[Record]("age")
	name := MustSubstringIndex[Record]("name")
	c := MustCollection(NewPrimaryIndex[Record](), map[string]Index[Record]{"age": age, "name": name})
	require.True(t, c.Insert(Record{"id": "1", "name": "Alice", "age": 30}))

	rec, _ := c.Get("1")
	rec["age"] = 99
	delete(rec, "name")
	assert.False(t, c.Update(rec))
	assert.Empty(t, age.Find(99), "no index is written when one cannot take the document")
	assert.Equal(t, []string{"1"}, ids(age.Find(30)))
	assert.Equal(t, []string{"1"}, ids(name.Search("ali")))

	rec["name"] = "Bea"
	require.True(t, c.Update(rec))
	assert.Equal(t, []string{"1"}, ids(age.Find(99)))
	assert.Empty(t, age.Find(30))
	assert.Equal(t, []string{"1"}, ids(name.Search("bea")))
	assert.Empty(t, name.Search("ali"))
}

func TestCollectionUpdateSameInstance(t *testing.T) {
	f := newUsers(t)
	f.seed(t)
	bob, _ := f.users.Get("2")
	bob.Age = 50
	bob.Name = "Robert"
	require.True(t, f.users.Update(bob))
	assert.Equal(t, []string{"1", "3", "2"}, ids(f.age.All()))
	assert.Equal(t, []string{"2"}, ids(f.name.Search("robe")))
	assert.Empty(t, f.name.Search("bob"))
}

func TestCollectionDeleteReinsert(t *testing.T) {
	f := newUsers(t)
	f.seed(t)
	charlie, _ := f.users.Get("3")

	require.True(t, f.users.Delete("3"))
	_, ok := f.users.Get("3")
	assert.False(t, ok)
	assert.Empty(t, f.age.Find(35))
	got, _ := f.age.FindInRange(Range{GTE: 35})
	assert.Empty(t, got)
	assert.Empty(t, f.name.Search("charlie"))

	require.True(t, f.users.Insert(charlie))
	_, ok = f.users.Get("3")
	assert.True(t, ok)
	assert.Equal(t, []string{"3"}, ids(f.age.Find(35)))
	got, _ = f.age.FindInRange(Range{GTE: 35})
	assert.Equal(t, []string{"3"}, ids(got))
	assert.Equal(t, []string{"3"}, ids(f.name.Search("charlie")))
}

func TestCollectionAddIndex(t *testing.T) {
	c := MustCollection(NewPrimaryIndex[Record](), nil)
	require.True(t, c.Insert(Record{"id": "1", "name": "Alice", "age": 30}))
	require.True(t, c.Insert(Record{"id": "2", "name": "Bob"}))

	name := MustSubstringIndex[Record]("name")
	require.NoError(t, c.AddIndex("name", name))
	assert.Equal(t, []string{"1", "2"}, ids(name.Search("")))
	assert.ErrorIs(t, c.AddIndex("name", MustSubstringIndex[Record]("name")), ErrInvalidIndex)
	assert.ErrorIs(t, c.AddIndex("nil", nil), ErrInvalidIndex)

	age := MustSortedIndex[Record]("age")
	assert.ErrorIs(t, c.AddIndex("age", age), ErrInvalidIndex, "Bob has no age")
	assert.Equal(t, 0, age.Len(), "a refused backfill is undone")
	_, ok := c.Index("age")
	assert.False(t, ok)

	idx, ok := c.Index("name")
	require.True(t, ok)
	assert.Same(t, name, idx)

	unnamed := MustSubstringIndex[Record]("name")
	assert.ErrorIs(t, c.AddIndex("", unnamed), ErrInvalidIndex)
	assert.Equal(t, 0, unnamed.Len(), "a refused name is caught before the backfill")
	assert.ErrorIs(t, c.AddIndex("primary", c.Primary()), ErrInvalidIndex)
	assert.Equal(t, 2, c.Len())
}

func TestCollectionString(t *testing.T) {
	f := newUsers(t)
	f.seed(t)
	assert.Equal(t, "[(1, Alice, 30), (2, Bob, 25), (3, Charlie, 35)]", f.users.String())
}

type modelDoc struct {
	name string
	age  int
}

// TestCollectionModel applies random writes and compares every index with a
// brute-force model after each step.
func TestCollectionModel(t *testing.T) {
	f := newUsers(t)
	r := rand.New(rand.NewPCG(7, 11))
	model := map[string]modelDoc{}
	var order []string // ids in insertion order

	word := func(n int) string {
		var sb strings.Builder
		for range r.IntN(n + 1) {
			sb.WriteByte("abAB"[r.IntN(4)])
		}
		return sb.String()
	}

	for step := range 2000 {
		id := fmt.Sprint(r.IntN(25))
		_, exists := model[id]
		switch r.IntN(3) {
		case 0:
			d := modelDoc{name: word(6), age: r.IntN(40)}
			ok := f.users.Insert(newUser(id, d.name, d.age))
			require.Equal(t, !exists, ok, "step %d insert %s", step, id)
			if ok {
				model[id] = d
				order = append(order, id)
			}
		case 1:
			d := modelDoc{name: word(6), age: r.IntN(40)}
			ok := f.users.Update(newUser(id, d.name, d.age))
			require.Equal(t, exists, ok, "step %d update %s", step, id)
			if ok {
				model[id] = d
			}
		case 2:
			ok := f.users.Delete(id)
			require.Equal(t, exists, ok, "step %d delete %s", step, id)
			if ok {
				delete(model, id)
				order = slices.DeleteFunc(order, func(s string) bool { return s == id })
			}
		}

		byAge := slices.Clone(order)
		slices.SortFunc(byAge, func(a, b string) int {
			return cmp.Or(cmp.Compare(model[a].age, model[b].age), strings.Compare(a, b))
		})
		primary := slices.Clone(order)
		slices.Sort(primary)

		require.Equal(t, primary, ids(f.users.Primary().All()), "step %d primary", step)
		require.Equal(t, byAge, ids(f.age.All()), "step %d sorted order", step)
		require.Equal(t, order, ids(f.name.Search("")), "step %d insertion order", step)

		lo, hi := r.IntN(45)-2, r.IntN(45)-2
		var want []string
		for _, id := range byAge {
			if a := model[id].age; a >= lo && a <= hi {
				want = append(want, id)
			}
		}
		got, err := f.age.FindInRange(Range{GTE: lo, LTE: hi})
		require.NoError(t, err)
		require.Equal(t, nonNil(want), ids(got), "step %d range [%d, %d]", step, lo, hi)

		want = nil
		for _, id := range byAge {
			if model[id].age == lo {
				want = append(want, id)
			}
		}
		require.Equal(t, nonNil(want), ids(f.age.Find(lo)), "step %d find %d", step, lo)

		q := word(4)
		want = nil
		for _, id := range order {
			if strings.Contains(strings.ToLower(model[id].name), strings.ToLower(q)) {
				want = append(want, id)
			}
		}
		require.Equal(t, nonNil(want), ids(f.name.Search(q)), "step %d search %q", step, q)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
