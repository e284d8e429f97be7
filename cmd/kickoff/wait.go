package main

import (
	"errors"
	"flag"
	"time"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
)

const (
	minWaitPoll = 500 * time.Millisecond
	maxWaitPoll = 5 * time.Second
)

// cmdWait blocks until each given task has left the database, whether
// it finished, was canceled, or got reaped. The server has no push
// notification; this is plain polling with a small backoff.
func cmdWait(args []string) {
	fset := flag.NewFlagSet("wait", flag.ExitOnError)
	server := fset.String("server", defaultServer(), "task server address as HOST[:PORT]")
	fset.Parse(args)
	if len(fset.Args()) == 0 {
		fatal("Need at least one task id to wait for.")
	}

	ids := make([]kickoff.TaskID, 0, len(fset.Args()))
	for _, arg := range fset.Args() {
		id, err := kickoff.ParseTaskID(arg)
		if err != nil {
			fatal("Failed to parse hexadecimal task ID: %v", arg)
		}
		ids = append(ids, id)
	}

	client := dialClient(*server)
	for _, id := range ids {
		color.Cyan("Waiting for task %v", id.Hex())
		poll := minWaitPoll
		for {
			_, err := client.GetTaskStatus(id)
			if errors.Is(err, kickoff.ErrTaskNotFound) {
				break
			}
			if err != nil {
				fatal("Failed to retrieve task status: %v", err)
			}
			time.Sleep(poll)
			poll += poll / 2
			if poll > maxWaitPoll {
				poll = maxWaitPoll
			}
		}
		color.Green("Task %v finished", id.Hex())
	}
}
