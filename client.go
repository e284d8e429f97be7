package kickoff

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/imagvfx/kickoff/blob"
)

// ErrTaskNotFound is returned when the server has no task with the
// requested id. The task may have been canceled, finished, or never
// started.
var ErrTaskNotFound = errors.New("task not found")

// Client talks to a task server. It opens one TCP connection per call
// and closes it when the reply is in; there is no connection state to
// manage or invalidate.
type Client struct {
	addr string
}

// NewClient creates a client for the server at host:port.
func NewClient(host string, port int) *Client {
	return &Client{addr: net.JoinHostPort(host, strconv.Itoa(port))}
}

// Addr returns the server address the client was created with.
func (c *Client) Addr() string {
	return c.addr
}

// roundTrip sends one request and reads one reply. Transport failures
// are wrapped so the CLI can show one consistent message for a server
// that is not responding.
func (c *Client) roundTrip(req *blob.Writer) (replyType, *blob.Reader, error) {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return replyFailed, nil, fmt.Errorf("task server at %v may not be responding: %w", c.addr, err)
	}
	defer conn.Close()
	if err := writeFrame(conn, req.Bytes()); err != nil {
		return replyFailed, nil, fmt.Errorf("task server at %v may not be responding: %w", c.addr, err)
	}
	payload, err := readFrame(conn)
	if err != nil {
		return replyFailed, nil, fmt.Errorf("task server at %v may not be responding: %w", c.addr, err)
	}
	r := blob.NewReader(payload)
	status, err := r.Uint8()
	if err != nil {
		return replyFailed, nil, fmt.Errorf("malformed reply from task server at %v", c.addr)
	}
	return replyType(status), r, nil
}

// request is roundTrip for the common case: replyFailed means the task
// does not exist, anything else unexpected is an error.
func (c *Client) request(req *blob.Writer) (*blob.Reader, error) {
	status, r, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	switch status {
	case replyOK:
		return r, nil
	case replyFailed:
		return nil, ErrTaskNotFound
	}
	return nil, fmt.Errorf("task server rejected the request as malformed")
}

// CreateTask submits a new task and returns its id.
func (c *Client) CreateTask(info TaskCreateInfo) (TaskID, error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqCreate))
	info.Encode(req)
	r, err := c.request(req)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return 0, fmt.Errorf("task server failed to create the task")
		}
		return 0, err
	}
	id, err := r.Uint64()
	if err != nil {
		return 0, fmt.Errorf("malformed create reply: %w", err)
	}
	return TaskID(id), nil
}

// GetTaskCommand fetches the task's command line.
func (c *Client) GetTaskCommand(id TaskID) (string, error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqGetCommand))
	req.Uint64(uint64(id))
	r, err := c.request(req)
	if err != nil {
		return "", err
	}
	cmd, err := r.String()
	if err != nil {
		return "", fmt.Errorf("malformed command reply: %w", err)
	}
	return cmd, nil
}

// GetTaskSchedule fetches the task's schedule.
func (c *Client) GetTaskSchedule(id TaskID) (TaskSchedule, error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqGetSchedule))
	req.Uint64(uint64(id))
	r, err := c.request(req)
	if err != nil {
		return TaskSchedule{}, err
	}
	var sched TaskSchedule
	if err := sched.Decode(r); err != nil {
		return TaskSchedule{}, fmt.Errorf("malformed schedule reply: %w", err)
	}
	return sched, nil
}

// GetTaskStatus fetches the task's lifecycle status. ErrTaskNotFound
// means the task has left the database, which is also how wait detects
// completion.
func (c *Client) GetTaskStatus(id TaskID) (TaskStatus, error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqGetStatus))
	req.Uint64(uint64(id))
	r, err := c.request(req)
	if err != nil {
		return TaskStatus{}, err
	}
	var status TaskStatus
	if err := status.Decode(r); err != nil {
		return TaskStatus{}, fmt.Errorf("malformed status reply: %w", err)
	}
	return status, nil
}

// GetStats fetches the server's task counters.
func (c *Client) GetStats() (TaskStats, error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqGetStats))
	r, err := c.request(req)
	if err != nil {
		return TaskStats{}, err
	}
	var stats TaskStats
	if err := stats.Decode(r); err != nil {
		return TaskStats{}, fmt.Errorf("malformed stats reply: %w", err)
	}
	return stats, nil
}

// GetTasksByStates lists tasks in the given states. It returns
// ErrTooManyTasks when the server refuses because the live task count
// is over the listing threshold.
func (c *Client) GetTasksByStates(states []TaskState) ([]TaskBriefInfo, error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqGetTasksByStates))
	req.Count(len(states))
	for _, s := range states {
		req.Uint8(uint8(s))
	}
	status, r, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if status == replyFailed {
		return nil, ErrTooManyTasks
	}
	if status != replyOK {
		return nil, fmt.Errorf("task server rejected the request as malformed")
	}
	n, err := r.Count()
	if err != nil {
		return nil, fmt.Errorf("malformed list reply: %w", err)
	}
	infos := make([]TaskBriefInfo, 0, n)
	for i := 0; i < n; i++ {
		var info TaskBriefInfo
		if err := info.Decode(r); err != nil {
			return nil, fmt.Errorf("malformed list reply: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// TakeTaskToRun asks for a pending task matching the worker's
// resources. ok is false when nothing matched, which is the worker's
// cue to sleep and poll again.
func (c *Client) TakeTaskToRun(haveResources []string) (TaskRunInfo, bool, error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqTakeToRun))
	req.StringSlice(haveResources)
	status, r, err := c.roundTrip(req)
	if err != nil {
		return TaskRunInfo{}, false, err
	}
	if status == replyFailed {
		return TaskRunInfo{}, false, nil
	}
	if status != replyOK {
		return TaskRunInfo{}, false, fmt.Errorf("task server rejected the request as malformed")
	}
	var info TaskRunInfo
	if err := info.Decode(r); err != nil {
		return TaskRunInfo{}, false, fmt.Errorf("malformed take reply: %w", err)
	}
	return info, true, nil
}

// HeartbeatTask proves the task is still alive on this worker and
// reports whether it was marked for cancellation since the last
// heartbeat.
func (c *Client) HeartbeatTask(id TaskID) (wasCanceled bool, err error) {
	req := &blob.Writer{}
	req.Uint8(uint8(reqHeartbeat))
	req.Uint64(uint64(id))
	r, err := c.request(req)
	if err != nil {
		return false, err
	}
	wasCanceled, err = r.Bool()
	if err != nil {
		return false, fmt.Errorf("malformed heartbeat reply: %w", err)
	}
	return wasCanceled, nil
}

// MarkTaskFinished tells the server the task's process has exited.
func (c *Client) MarkTaskFinished(id TaskID) error {
	req := &blob.Writer{}
	req.Uint8(uint8(reqMarkFinished))
	req.Uint64(uint64(id))
	_, err := c.request(req)
	return err
}

// MarkTaskShouldCancel marks the task for cancellation.
func (c *Client) MarkTaskShouldCancel(id TaskID) error {
	req := &blob.Writer{}
	req.Uint8(uint8(reqMarkShouldCancel))
	req.Uint64(uint64(id))
	_, err := c.request(req)
	return err
}
