package kickoff

import (
	"context"
	"log"
	"os/exec"
	"time"

	"github.com/rs/xid"
)

const (
	// DefaultHeartbeatInterval is how often a worker proves a running
	// task alive. The server's heartbeat timeout assumes it can miss
	// at most a few of these.
	DefaultHeartbeatInterval = 10 * time.Second

	// minIdlePoll and maxIdlePoll bound the sleep between empty polls
	// for work. The sleep grows slowly from the minimum after every
	// empty poll and resets when a task arrives.
	minIdlePoll = time.Second
	maxIdlePoll = 60 * time.Second
)

// Worker polls the server for a matching task, runs the task's command
// in a subprocess, and heartbeats until the process exits or the task
// is canceled. Workers keep no state across restarts; a worker that
// dies mid-task is handled by the server's zombie reaper.
type Worker struct {
	// HeartbeatInterval is the cadence of heartbeats while a task
	// runs. NewWorker picks the default.
	HeartbeatInterval time.Duration

	client *Client
	have   []string
	name   string
}

// NewWorker creates a worker that advertises the given resource tags.
func NewWorker(client *Client, haveResources []string) *Worker {
	return &Worker{
		HeartbeatInterval: DefaultHeartbeatInterval,
		client:            client,
		have:              haveResources,
		name:              xid.New().String(),
	}
}

// Name returns the worker's instance name, for telling apart workers
// sharing a host in logs.
func (w *Worker) Name() string {
	return w.name
}

// Run loops taking and running tasks until ctx is canceled. A cancel
// is a graceful shutdown: a task already running is allowed to finish,
// but no new task is taken.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("worker %v: starting with resources %v", w.name, w.have)
	idle := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		info, ok, err := w.client.TakeTaskToRun(w.have)
		if err != nil {
			log.Printf("worker %v: %v", w.name, err)
		}
		if err != nil || !ok {
			idle = clampDuration(idle, minIdlePoll, maxIdlePoll)
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			// slow exponential slowdown
			idle = idle + time.Second + idle/4
			continue
		}
		idle = 0
		w.runTask(info)
	}
}

// runTask spawns the task's command via the host shell and heartbeats
// until the process exits. When a heartbeat reports the task canceled,
// the process is killed; either way the exit is reported with
// MarkTaskFinished.
func (w *Worker) runTask(info TaskRunInfo) {
	log.Printf("worker %v: starting task %v: %v", w.name, info.ID.Hex(), info.Command)
	cmd := exec.Command("/bin/sh", "-c", info.Command)
	if err := cmd.Start(); err != nil {
		log.Printf("worker %v: task %v failed to start: %v", w.name, info.ID.Hex(), err)
		w.markFinished(info.ID)
		return
	}

	waitc := make(chan error, 1)
	go func() { waitc <- cmd.Wait() }()

	tick := time.NewTicker(w.HeartbeatInterval)
	defer tick.Stop()
	killed := false
	for running := true; running; {
		select {
		case err := <-waitc:
			if err != nil && !killed {
				log.Printf("worker %v: task %v exited: %v", w.name, info.ID.Hex(), err)
			}
			running = false
		case <-tick.C:
			wasCanceled, err := w.client.HeartbeatTask(info.ID)
			if err != nil {
				// The server may be restarting, or the reaper already
				// gave up on us. The process keeps running either way.
				log.Printf("worker %v: heartbeat for task %v: %v", w.name, info.ID.Hex(), err)
				continue
			}
			if wasCanceled && !killed {
				log.Printf("worker %v: killing task %v", w.name, info.ID.Hex())
				if err := cmd.Process.Kill(); err != nil {
					log.Printf("worker %v: failed to kill task %v: %v", w.name, info.ID.Hex(), err)
				}
				killed = true
			}
		}
	}

	w.markFinished(info.ID)
	log.Printf("worker %v: finished task %v", w.name, info.ID.Hex())
}

func (w *Worker) markFinished(id TaskID) {
	if err := w.client.MarkTaskFinished(id); err != nil {
		log.Printf("worker %v: failed to mark task %v as finished: %v", w.name, id.Hex(), err)
	}
}

func clampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
