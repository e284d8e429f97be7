package kickoff

import (
	"testing"
)

func TestTaskQueueOrder(t *testing.T) {
	q := newTaskQueue()
	a := &task{id: 1}
	b := &task{id: 2}
	c := &task{id: 3}
	q.Push(a)
	q.Push(b)
	q.Push(c)
	q.Push(b) // pushing again does nothing

	if q.Len() != 3 {
		t.Fatalf("got %v, want 3", q.Len())
	}
	got := []TaskID{}
	q.Each(func(tk *task) bool {
		got = append(got, tk.id)
		return true
	})
	want := []TaskID{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTaskQueueRemove(t *testing.T) {
	a := &task{id: 1}
	b := &task{id: 2}
	c := &task{id: 3}
	cases := []struct {
		label  string
		remove []*task
		want   []TaskID
	}{
		{label: "first", remove: []*task{a}, want: []TaskID{2, 3}},
		{label: "middle", remove: []*task{b}, want: []TaskID{1, 3}},
		{label: "last", remove: []*task{c}, want: []TaskID{1, 2}},
		{label: "all", remove: []*task{a, b, c}, want: []TaskID{}},
	}
	for _, cs := range cases {
		q := newTaskQueue()
		q.Push(a)
		q.Push(b)
		q.Push(c)
		for _, rm := range cs.remove {
			if !q.Remove(rm) {
				t.Fatalf("%v: remove returned false", cs.label)
			}
			if q.Remove(rm) {
				t.Fatalf("%v: removing twice returned true", cs.label)
			}
		}
		got := []TaskID{}
		q.Each(func(tk *task) bool {
			got = append(got, tk.id)
			return true
		})
		if len(got) != len(cs.want) {
			t.Fatalf("%v: got %v, want %v", cs.label, got, cs.want)
		}
		for i := range cs.want {
			if got[i] != cs.want[i] {
				t.Fatalf("%v: got %v, want %v", cs.label, got, cs.want)
			}
		}
		if q.Len() != len(cs.want) {
			t.Fatalf("%v: len got %v, want %v", cs.label, q.Len(), len(cs.want))
		}
	}
}

func TestTaskQueueEachStops(t *testing.T) {
	q := newTaskQueue()
	for i := 1; i <= 5; i++ {
		q.Push(&task{id: TaskID(i)})
	}
	n := 0
	q.Each(func(tk *task) bool {
		n++
		return n < 2
	})
	if n != 2 {
		t.Fatalf("got %v, want 2", n)
	}
}

func TestTaskQueuePushAfterRemoveAll(t *testing.T) {
	q := newTaskQueue()
	a := &task{id: 1}
	b := &task{id: 2}
	q.Push(a)
	q.Remove(a)
	q.Push(b)
	got := []TaskID{}
	q.Each(func(tk *task) bool {
		got = append(got, tk.id)
		return true
	})
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got %v, want [2]", got)
	}
}
