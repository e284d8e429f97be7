package kickoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startTestWorker runs a worker with a fast heartbeat against the
// server and stops it when the test ends.
func startTestWorker(t *testing.T, client *Client, have []string) context.CancelFunc {
	t.Helper()
	worker := NewWorker(client, have)
	worker.HeartbeatInterval = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("worker did not shut down")
		}
	})
	return cancel
}

func TestWorkerRunsTask(t *testing.T) {
	server, client := startTestServer(t)
	_, err := client.CreateTask(TaskCreateInfo{
		Command:  "true",
		Schedule: TaskSchedule{RequiredResources: []string{"CPU"}},
	})
	require.NoError(t, err)

	startTestWorker(t, client, []string{"CPU"})

	require.Eventually(t, func() bool {
		return server.DB().Stats() == TaskStats{NumFinished: 1}
	}, 10*time.Second, 20*time.Millisecond)
}

func TestWorkerLacksRequiredResource(t *testing.T) {
	server, client := startTestServer(t)
	_, err := client.CreateTask(TaskCreateInfo{
		Command:  "true",
		Schedule: TaskSchedule{RequiredResources: []string{"GPU"}},
	})
	require.NoError(t, err)

	startTestWorker(t, client, []string{"CPU"})

	// The task must still be pending after a few poll intervals.
	time.Sleep(2 * time.Second)
	require.Equal(t, TaskStats{NumPending: 1}, server.DB().Stats())
}

func TestWorkerObservesCancel(t *testing.T) {
	server, client := startTestServer(t)
	id, err := client.CreateTask(TaskCreateInfo{Command: "sleep 60"})
	require.NoError(t, err)

	startTestWorker(t, client, nil)

	require.Eventually(t, func() bool {
		return server.DB().Stats().NumRunning == 1
	}, 10*time.Second, 20*time.Millisecond)

	require.NoError(t, client.MarkTaskShouldCancel(id))

	// The worker sees the cancel on its next heartbeat, kills the
	// subprocess and reports the exit, long before the sleep is done.
	require.Eventually(t, func() bool {
		return server.DB().Stats() == TaskStats{NumFinished: 1}
	}, 10*time.Second, 20*time.Millisecond)
}

func TestWorkerGracefulShutdown(t *testing.T) {
	server, client := startTestServer(t)
	cancel := startTestWorker(t, client, nil)

	// Shut the idle worker down, then submit; the task must stay
	// pending because a stopping worker takes no new work.
	cancel()
	time.Sleep(100 * time.Millisecond)
	_, err := client.CreateTask(TaskCreateInfo{Command: "true"})
	require.NoError(t, err)
	time.Sleep(2 * time.Second)
	require.Equal(t, TaskStats{NumPending: 1}, server.DB().Stats())
}

func TestZombieReaping(t *testing.T) {
	server, client := startTestServer(t)
	_, err := client.CreateTask(TaskCreateInfo{Command: "true"})
	require.NoError(t, err)

	// Dispatch to a "worker" that then disappears without a single
	// heartbeat or finish report.
	_, ok, err := client.TakeTaskToRun(nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, TaskStats{NumRunning: 1}, server.DB().Stats())

	reaped := server.DB().CleanupZombieTasks(0)
	require.Equal(t, 1, reaped)
	require.Equal(t, TaskStats{NumFinished: 1}, server.DB().Stats())
}
