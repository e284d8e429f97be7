package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
)

// stateColors picks the dim and bright colors for rendering a task in
// a given state.
func stateColors(state kickoff.TaskState) (dim, bright *color.Color) {
	switch state {
	case kickoff.TaskPending:
		return color.New(color.FgCyan), color.New(color.FgHiCyan)
	case kickoff.TaskRunning:
		return color.New(color.FgGreen), color.New(color.FgHiGreen)
	case kickoff.TaskCanceling:
		return color.New(color.FgRed), color.New(color.FgHiRed)
	}
	fatal("Unexpected task state from server")
	return nil, nil
}

func cmdInfo(args []string) {
	fset := flag.NewFlagSet("info", flag.ExitOnError)
	server := fset.String("server", defaultServer(), "task server address as HOST[:PORT]")
	fset.Parse(args)
	if len(fset.Args()) != 1 {
		fatal("Need one task id.")
	}
	id, err := kickoff.ParseTaskID(fset.Args()[0])
	if err != nil {
		fatal("Failed to parse hexadecimal task ID: %v", fset.Args()[0])
	}

	client := dialClient(*server)
	status, err := client.GetTaskStatus(id)
	if errors.Is(err, kickoff.ErrTaskNotFound) {
		fatal("Failed to retrieve task info. Task may not exist (e.g. was canceled, finished, or never started)")
	}
	if err != nil {
		fatal("Failed to retrieve task info: %v", err)
	}
	schedule, err := client.GetTaskSchedule(id)
	if err != nil {
		fatal("Failed to retrieve task info. Internal error: retrieved status but not schedule.")
	}
	command, err := client.GetTaskCommand(id)
	if err != nil {
		fatal("Failed to retrieve task info. Internal error: retrieved status but not command.")
	}

	dim, bright := stateColors(status.State())
	fmt.Println(bright.Sprint(id.Hex()) + dim.Sprint(": "+status.String()))
	dim.Printf("Command = %q\n", command)
	dim.Println(schedule.String())
}
