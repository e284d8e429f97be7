package kickoff

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/imagvfx/kickoff/blob"
)

// TaskID is an opaque 64-bit task identifier, unique across all live
// tasks. It is presented to users as a 16 digit hex string.
type TaskID uint64

// Hex represents the TaskID as a 16 digit hex string.
func (id TaskID) Hex() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseTaskID parses a hex task id string from user input.
func ParseTaskID(s string) (TaskID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex task id: %v", s)
	}
	return TaskID(v), nil
}

// TaskState classifies a live task. It is never stored; it is derived
// from the task's run status. A task that has left the database is
// "finished" and has no state to report.
type TaskState uint8

const (
	TaskPending = TaskState(iota)
	TaskRunning
	TaskCanceling
)

// String represents TaskState as string.
func (s TaskState) String() string {
	str, ok := map[TaskState]string{
		TaskPending:   "pending",
		TaskRunning:   "running",
		TaskCanceling: "canceling",
	}[s]
	if !ok {
		return "<invalid TaskState>"
	}
	return str
}

// TaskSchedule describes where a task may run. A worker must have all
// of the required resource tags to take the task. Optional tags only
// affect ranking between eligible tasks.
type TaskSchedule struct {
	RequiredResources []string
	OptionalResources []string
}

func (s TaskSchedule) Encode(w *blob.Writer) {
	w.StringSlice(s.RequiredResources)
	w.StringSlice(s.OptionalResources)
}

func (s *TaskSchedule) Decode(r *blob.Reader) error {
	var err error
	s.RequiredResources, err = r.StringSlice()
	if err != nil {
		return err
	}
	s.OptionalResources, err = r.StringSlice()
	if err != nil {
		return err
	}
	return nil
}

// String represents the schedule the way the info command prints it.
func (s TaskSchedule) String() string {
	return "RequiredResources = {" + strings.Join(s.RequiredResources, ", ") + "}" +
		" OptionalResources = {" + strings.Join(s.OptionalResources, ", ") + "}"
}

// TaskRunStatus exists for tasks that have been dispatched to a worker.
type TaskRunStatus struct {
	// WasCanceled does not mean the task has finished, just that it
	// was marked for cancellation. It never becomes false again.
	WasCanceled bool

	// StartTime is when the task was dispatched, in unix seconds.
	StartTime int64

	// HeartbeatTime is when the worker last proved the task alive.
	// It is never older than StartTime.
	HeartbeatTime int64
}

func (rs TaskRunStatus) Encode(w *blob.Writer) {
	w.Bool(rs.WasCanceled)
	w.Int64(rs.StartTime)
	w.Int64(rs.HeartbeatTime)
}

func (rs *TaskRunStatus) Decode(r *blob.Reader) error {
	var err error
	rs.WasCanceled, err = r.Bool()
	if err != nil {
		return err
	}
	rs.StartTime, err = r.Int64()
	if err != nil {
		return err
	}
	rs.HeartbeatTime, err = r.Int64()
	if err != nil {
		return err
	}
	return nil
}

// TaskStatus is the lifecycle status of a task. Run is nil while the
// task is pending.
type TaskStatus struct {
	CreateTime int64
	Run        *TaskRunStatus
}

// State derives the task's state from the run status.
func (st TaskStatus) State() TaskState {
	if st.Run == nil {
		return TaskPending
	}
	if st.Run.WasCanceled {
		return TaskCanceling
	}
	return TaskRunning
}

func (st TaskStatus) clone() TaskStatus {
	if st.Run != nil {
		run := *st.Run
		st.Run = &run
	}
	return st
}

func (st TaskStatus) Encode(w *blob.Writer) {
	w.Int64(st.CreateTime)
	if st.Run != nil {
		w.Bool(true)
		st.Run.Encode(w)
	} else {
		w.Bool(false)
	}
}

func (st *TaskStatus) Decode(r *blob.Reader) error {
	var err error
	st.CreateTime, err = r.Int64()
	if err != nil {
		return err
	}
	hasRun, err := r.Bool()
	if err != nil {
		return err
	}
	if !hasRun {
		st.Run = nil
		return nil
	}
	st.Run = &TaskRunStatus{}
	return st.Run.Decode(r)
}

// String represents the status relative to the current time.
func (st TaskStatus) String() string {
	now := time.Now().Unix()
	switch st.State() {
	case TaskPending:
		return "Pending (so far waited " + formatInterval(now-st.CreateTime) + ")"
	case TaskRunning:
		return "Running (current runtime " + formatInterval(now-st.Run.StartTime) +
			"; worker heartbeat " + formatInterval(now-st.Run.HeartbeatTime) + ")"
	case TaskCanceling:
		return "Canceling (current runtime " + formatInterval(now-st.Run.StartTime) +
			"; worker heartbeat " + formatInterval(now-st.Run.HeartbeatTime) + ")"
	}
	return "<invalid TaskStatus>"
}

// formatInterval formats a duration in seconds like "1d2h3m4s".
// Zero units are omitted (3600 gives "1h0s"), except the seconds unit,
// which is always printed.
func formatInterval(interval int64) string {
	if interval < 0 {
		interval = 0
	}
	seconds := interval % 60
	interval /= 60
	minutes := interval % 60
	interval /= 60
	hours := interval % 24
	days := interval / 24

	str := ""
	if days > 0 {
		str += strconv.FormatInt(days, 10) + "d"
	}
	if hours > 0 {
		str += strconv.FormatInt(hours, 10) + "h"
	}
	if minutes > 0 {
		str += strconv.FormatInt(minutes, 10) + "m"
	}
	return str + strconv.FormatInt(seconds, 10) + "s"
}

// TaskCreateInfo groups everything needed to create a task.
type TaskCreateInfo struct {
	// Command is the shell command line the worker will execute.
	Command string

	Schedule TaskSchedule
}

func (info TaskCreateInfo) Encode(w *blob.Writer) {
	w.String(info.Command)
	info.Schedule.Encode(w)
}

func (info *TaskCreateInfo) Decode(r *blob.Reader) error {
	var err error
	info.Command, err = r.String()
	if err != nil {
		return err
	}
	return info.Schedule.Decode(r)
}

// TaskStats counts live tasks per state, plus every task that has ever
// finished. NumFinished only grows over the server's lifetime.
type TaskStats struct {
	NumPending   uint64
	NumRunning   uint64
	NumCanceling uint64
	NumFinished  uint64
}

func (s TaskStats) Encode(w *blob.Writer) {
	w.Uint64(s.NumPending)
	w.Uint64(s.NumRunning)
	w.Uint64(s.NumCanceling)
	w.Uint64(s.NumFinished)
}

func (s *TaskStats) Decode(r *blob.Reader) error {
	for _, p := range []*uint64{&s.NumPending, &s.NumRunning, &s.NumCanceling, &s.NumFinished} {
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// TaskBriefInfo is one entry of a task listing.
type TaskBriefInfo struct {
	ID     TaskID
	Status TaskStatus
}

func (info TaskBriefInfo) Encode(w *blob.Writer) {
	w.Uint64(uint64(info.ID))
	info.Status.Encode(w)
}

func (info *TaskBriefInfo) Decode(r *blob.Reader) error {
	id, err := r.Uint64()
	if err != nil {
		return err
	}
	info.ID = TaskID(id)
	return info.Status.Decode(r)
}

// TaskRunInfo is what a worker needs to run a dispatched task.
type TaskRunInfo struct {
	ID      TaskID
	Command string
}

func (info TaskRunInfo) Encode(w *blob.Writer) {
	w.Uint64(uint64(info.ID))
	w.String(info.Command)
}

func (info *TaskRunInfo) Decode(r *blob.Reader) error {
	id, err := r.Uint64()
	if err != nil {
		return err
	}
	info.ID = TaskID(id)
	info.Command, err = r.String()
	return err
}

// TaskInfo is a copy of one live task, handed out by the database.
// It stays valid after the task itself is gone.
type TaskInfo struct {
	ID       TaskID
	Command  string
	Schedule TaskSchedule
	Status   TaskStatus
}

// task is a live task record. The database exclusively owns every
// task; everything that leaves the database is a copy.
type task struct {
	id       TaskID
	command  string
	schedule TaskSchedule
	status   TaskStatus
}

func (t *task) info() TaskInfo {
	return TaskInfo{
		ID:       t.id,
		Command:  t.command,
		Schedule: t.schedule,
		Status:   t.status.clone(),
	}
}
