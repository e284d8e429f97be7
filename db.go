package kickoff

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// MaxListTasks bounds GetTasksByStates. Listing every task is a
// debugging tool for small deployments; past this many live tasks the
// request is refused outright instead of truncated.
const MaxListTasks = 100

// ErrTooManyTasks is returned by GetTasksByStates when the live task
// count exceeds MaxListTasks.
var ErrTooManyTasks = errors.New("too many tasks to list")

// Database is the in-memory task store. It owns every live task;
// callers only ever see copies keyed by TaskID.
//
// Every exported method takes the database lock, so each call is
// atomic and its effects are visible to every later call from any
// connection.
type Database struct {
	sync.Mutex
	tasks   map[TaskID]*task
	pending *taskQueue
	stats   TaskStats
	rand    *rand.Rand
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{
		tasks:   make(map[TaskID]*task),
		pending: newTaskQueue(),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetTask returns a copy of the task, or false if no task has the id.
func (db *Database) GetTask(id TaskID) (TaskInfo, bool) {
	db.Lock()
	defer db.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return TaskInfo{}, false
	}
	return t.info(), true
}

// GetTasksByStates returns every live task in one of the given states,
// sorted by id. It refuses with ErrTooManyTasks when the total live
// task count exceeds MaxListTasks.
func (db *Database) GetTasksByStates(states ...TaskState) ([]TaskBriefInfo, error) {
	db.Lock()
	defer db.Unlock()
	if len(db.tasks) > MaxListTasks {
		return nil, ErrTooManyTasks
	}
	want := make(map[TaskState]bool)
	for _, s := range states {
		want[s] = true
	}
	infos := make([]TaskBriefInfo, 0)
	for _, t := range db.tasks {
		if want[t.status.State()] {
			infos = append(infos, TaskBriefInfo{ID: t.id, Status: t.status.clone()})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Stats returns a snapshot of the task counters.
func (db *Database) Stats() TaskStats {
	db.Lock()
	defer db.Unlock()
	return db.stats
}

// CreateTask adds a new pending task and returns a copy of it.
func (db *Database) CreateTask(info TaskCreateInfo) TaskInfo {
	db.Lock()
	defer db.Unlock()
	t := &task{
		id:       db.unusedTaskID(),
		command:  info.Command,
		schedule: info.Schedule,
		status:   TaskStatus{CreateTime: time.Now().Unix()},
	}
	db.tasks[t.id] = t
	db.pending.Push(t)
	db.stats.NumPending++
	return t.info()
}

// unusedTaskID draws random ids until it finds one no live task uses.
// Called with the lock held.
func (db *Database) unusedTaskID() TaskID {
	id := TaskID(db.rand.Uint64())
	sanityCount := 0
	for db.tasks[id] != nil {
		id = TaskID(db.rand.Uint64())
		sanityCount++
		if sanityCount > 1000 {
			panic("unusedTaskID failed to find an empty slot after 1000 iterations")
		} else if sanityCount > 10 {
			log.Print("unusedTaskID is taking unusually long to find an empty slot")
		}
	}
	return id
}

// TakeTaskToRun dequeues the pending task that best matches the
// worker's resource tags and transitions it to running before
// returning. It returns false when no pending task is eligible.
//
// A task is eligible when the worker has every required resource. Of
// the eligible tasks the one with the highest score wins, where score
// is the fraction of the task's optional resources the worker has
// (0 when it has none). Ties go to the oldest task, and the scan stops
// early at the first task that scores 0.999 or better.
func (db *Database) TakeTaskToRun(haveResources []string) (TaskRunInfo, bool) {
	db.Lock()
	defer db.Unlock()

	have := make(map[string]bool)
	for _, res := range haveResources {
		have[res] = true
	}

	var readyTask *task
	bestScore := float64(-1)
	db.pending.Each(func(t *task) bool {
		for _, res := range t.schedule.RequiredResources {
			if !have[res] {
				return true // next task
			}
		}
		score := float64(0)
		if n := len(t.schedule.OptionalResources); n > 0 {
			matchCount := 0
			for _, res := range t.schedule.OptionalResources {
				if have[res] {
					matchCount++
				}
			}
			score = float64(matchCount) / float64(n)
		}
		if score > bestScore {
			bestScore = score
			readyTask = t
			if bestScore >= 0.999 {
				// not really possible to get any better than this
				return false
			}
		}
		return true
	})

	if readyTask == nil {
		return TaskRunInfo{}, false
	}
	db.pending.Remove(readyTask)
	now := time.Now().Unix()
	readyTask.status.Run = &TaskRunStatus{StartTime: now, HeartbeatTime: now}
	db.stats.NumPending--
	db.stats.NumRunning++
	return TaskRunInfo{ID: readyTask.id, Command: readyTask.command}, true
}

// HeartbeatTask refreshes the task's heartbeat timestamp and reports
// whether the task was marked for cancellation. A heartbeat for a
// pending task is a no-op. It returns ok=false when no task has the
// id.
func (db *Database) HeartbeatTask(id TaskID) (wasCanceled, ok bool) {
	db.Lock()
	defer db.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return false, false
	}
	if t.status.Run == nil {
		return false, true
	}
	t.status.Run.HeartbeatTime = time.Now().Unix()
	return t.status.Run.WasCanceled, true
}

// MarkTaskFinished removes the task from the database. It returns
// false when no task has the id.
func (db *Database) MarkTaskFinished(id TaskID) bool {
	db.Lock()
	defer db.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return false
	}
	db.finish(t)
	return true
}

// finish removes a live task and moves its counter to finished.
// Called with the lock held.
func (db *Database) finish(t *task) {
	switch t.status.State() {
	case TaskPending:
		db.stats.NumPending--
	case TaskRunning:
		db.stats.NumRunning--
	case TaskCanceling:
		db.stats.NumCanceling--
	}
	db.stats.NumFinished++
	db.pending.Remove(t)
	delete(db.tasks, t.id)
	db.checkCounters()
}

// checkCounters makes sure no live counter went negative.
// Called with the lock held.
func (db *Database) checkCounters() {
	for _, n := range []uint64{db.stats.NumPending, db.stats.NumRunning, db.stats.NumCanceling} {
		if n > uint64(len(db.tasks)) {
			panic(fmt.Sprintf("task counter underflow: %+v with %d live tasks", db.stats, len(db.tasks)))
		}
	}
}

// MarkTaskShouldCancel marks a running task for cancellation; the
// worker observes the flag on its next heartbeat. A task that was
// never dispatched is removed directly and counted as finished. It
// returns false when no task has the id.
func (db *Database) MarkTaskShouldCancel(id TaskID) bool {
	db.Lock()
	defer db.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return false
	}
	if t.status.Run == nil {
		db.finish(t)
		return true
	}
	if !t.status.Run.WasCanceled {
		t.status.Run.WasCanceled = true
		db.stats.NumRunning--
		db.stats.NumCanceling++
	}
	return true
}

// CleanupZombieTasks finishes every dispatched task whose last
// heartbeat is timeoutSeconds or more in the past. It returns how many
// tasks were reaped.
func (db *Database) CleanupZombieTasks(timeoutSeconds int64) int {
	db.Lock()
	defer db.Unlock()
	now := time.Now().Unix()
	var zombies []*task
	for _, t := range db.tasks {
		if t.status.Run == nil {
			continue
		}
		if now-t.status.Run.HeartbeatTime >= timeoutSeconds {
			zombies = append(zombies, t)
		}
	}
	for _, t := range zombies {
		db.finish(t)
	}
	return len(zombies)
}
