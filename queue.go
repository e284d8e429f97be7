package kickoff

// taskQueue is a FIFO queue of unique tasks. The matching scan walks
// it in insertion order, which is what makes score ties resolve to the
// task that entered the queue first.
type taskQueue struct {
	has   map[*task]bool
	first *taskItem
	last  *taskItem
}

// taskItem wraps a task and directs the next item, so the queue can
// traverse.
type taskItem struct {
	t    *task
	next *taskItem
}

// newTaskQueue creates a new taskQueue.
func newTaskQueue() *taskQueue {
	return &taskQueue{
		has: make(map[*task]bool),
	}
}

// Len returns the number of tasks in the queue.
func (q *taskQueue) Len() int {
	return len(q.has)
}

// Has reports whether the task is in the queue.
func (q *taskQueue) Has(t *task) bool {
	return q.has[t]
}

// Push pushes a task to the queue.
// If the task already exists in the queue, it does nothing.
func (q *taskQueue) Push(t *task) {
	if q.has[t] {
		return
	}
	q.has[t] = true
	item := &taskItem{t: t}
	if q.first == nil {
		q.first = item
	} else {
		q.last.next = item
	}
	q.last = item
}

// Remove finds and removes the given task from the queue.
// If the queue has the task, it removes the task and returns true.
// Otherwise, it does nothing and returns false.
func (q *taskQueue) Remove(t *task) bool {
	if !q.has[t] {
		return false
	}
	delete(q.has, t)
	var prev *taskItem
	for it := q.first; it != nil; it = it.next {
		if it.t == t {
			if it == q.first {
				q.first = q.first.next
			} else {
				prev.next = it.next
			}
			if it == q.last {
				q.last = prev
			}
			break
		}
		prev = it
	}
	return true
}

// Each calls f for every task in insertion order, oldest first.
// Traversal stops when f returns false.
func (q *taskQueue) Each(f func(*task) bool) {
	for it := q.first; it != nil; it = it.next {
		if !f(it.t) {
			return
		}
	}
}
