package kickoff

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imagvfx/kickoff/blob"
)

// startTestServer runs a server on an ephemeral port and returns a
// client for it.
func startTestServer(t *testing.T) (*Server, *Client) {
	t.Helper()
	server := NewServer()
	require.NoError(t, server.Listen("127.0.0.1:0"))
	go server.Serve()
	t.Cleanup(server.Shutdown)

	host, portStr, err := net.SplitHostPort(server.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return server, NewClient(host, port)
}

func TestServerTaskLifecycle(t *testing.T) {
	_, client := startTestServer(t)

	id, err := client.CreateTask(TaskCreateInfo{
		Command: "echo hi",
		Schedule: TaskSchedule{
			RequiredResources: []string{"CPU"},
			OptionalResources: []string{"GPU"},
		},
	})
	require.NoError(t, err)
	require.Len(t, id.Hex(), 16)

	stats, err := client.GetStats()
	require.NoError(t, err)
	require.Equal(t, TaskStats{NumPending: 1}, stats)

	status, err := client.GetTaskStatus(id)
	require.NoError(t, err)
	require.Equal(t, TaskPending, status.State())

	schedule, err := client.GetTaskSchedule(id)
	require.NoError(t, err)
	require.Equal(t, []string{"CPU"}, schedule.RequiredResources)
	require.Equal(t, []string{"GPU"}, schedule.OptionalResources)

	command, err := client.GetTaskCommand(id)
	require.NoError(t, err)
	require.Equal(t, "echo hi", command)

	tasks, err := client.GetTasksByStates([]TaskState{TaskPending, TaskRunning, TaskCanceling})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, id, tasks[0].ID)

	// A worker without the required tag is refused.
	_, ok, err := client.TakeTaskToRun([]string{"big-mem"})
	require.NoError(t, err)
	require.False(t, ok)

	run, ok, err := client.TakeTaskToRun([]string{"CPU"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, run.ID)
	require.Equal(t, "echo hi", run.Command)

	stats, err = client.GetStats()
	require.NoError(t, err)
	require.Equal(t, TaskStats{NumRunning: 1}, stats)

	wasCanceled, err := client.HeartbeatTask(id)
	require.NoError(t, err)
	require.False(t, wasCanceled)

	require.NoError(t, client.MarkTaskShouldCancel(id))
	wasCanceled, err = client.HeartbeatTask(id)
	require.NoError(t, err)
	require.True(t, wasCanceled)

	require.NoError(t, client.MarkTaskFinished(id))
	stats, err = client.GetStats()
	require.NoError(t, err)
	require.Equal(t, TaskStats{NumFinished: 1}, stats)

	_, err = client.GetTaskStatus(id)
	require.ErrorIs(t, err, ErrTaskNotFound)
	err = client.MarkTaskShouldCancel(id)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestServerNotFound(t *testing.T) {
	_, client := startTestServer(t)

	_, err := client.GetTaskStatus(TaskID(0x1234))
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = client.GetTaskSchedule(TaskID(0x1234))
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = client.GetTaskCommand(TaskID(0x1234))
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = client.HeartbeatTask(TaskID(0x1234))
	require.ErrorIs(t, err, ErrTaskNotFound)
	err = client.MarkTaskFinished(TaskID(0x1234))
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestServerListOverflow(t *testing.T) {
	server, client := startTestServer(t)
	for i := 0; i <= MaxListTasks; i++ {
		server.DB().CreateTask(TaskCreateInfo{Command: "true"})
	}
	_, err := client.GetTasksByStates([]TaskState{TaskPending})
	require.ErrorIs(t, err, ErrTooManyTasks)
}

// TestServerBadRequest feeds the server malformed frames; each must be
// answered with the bad-request status without touching the database.
func TestServerBadRequest(t *testing.T) {
	server, client := startTestServer(t)

	conn, err := net.Dial("tcp", client.Addr())
	require.NoError(t, err)
	defer conn.Close()

	send := func(payload []byte) replyType {
		require.NoError(t, writeFrame(conn, payload))
		reply, err := readFrame(conn)
		require.NoError(t, err)
		r := blob.NewReader(reply)
		status, err := r.Uint8()
		require.NoError(t, err)
		return replyType(status)
	}

	// Unknown opcode.
	require.Equal(t, replyBadRequest, send([]byte{0xFF}))
	// Empty request.
	require.Equal(t, replyBadRequest, send(nil))
	// Create with a truncated body.
	require.Equal(t, replyBadRequest, send([]byte{byte(reqCreate), 5, 0, 0, 0, 'a'}))
	// Stats with trailing garbage.
	require.Equal(t, replyBadRequest, send([]byte{byte(reqGetStats), 1}))
	// Heartbeat with a short id.
	require.Equal(t, replyBadRequest, send([]byte{byte(reqHeartbeat), 1, 2}))

	// None of that created partial state.
	require.Equal(t, TaskStats{}, server.DB().Stats())
}

// The server keeps a connection open across requests and answers in
// request order.
func TestServerRequestOrderPerConnection(t *testing.T) {
	_, client := startTestServer(t)

	conn, err := net.Dial("tcp", client.Addr())
	require.NoError(t, err)
	defer conn.Close()

	ids := make([]TaskID, 0, 5)
	for i := 0; i < 5; i++ {
		req := &blob.Writer{}
		req.Uint8(uint8(reqCreate))
		TaskCreateInfo{Command: "true"}.Encode(req)
		require.NoError(t, writeFrame(conn, req.Bytes()))

		reply, err := readFrame(conn)
		require.NoError(t, err)
		r := blob.NewReader(reply)
		status, err := r.Uint8()
		require.NoError(t, err)
		require.Equal(t, replyOK, replyType(status))
		id, err := r.Uint64()
		require.NoError(t, err)
		ids = append(ids, TaskID(id))
	}

	stats, err := client.GetStats()
	require.NoError(t, err)
	require.Equal(t, uint64(5), stats.NumPending)
	for _, id := range ids {
		_, err := client.GetTaskStatus(id)
		require.NoError(t, err)
	}
}
