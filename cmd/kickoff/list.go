package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
)

func cmdList(args []string) {
	fset := flag.NewFlagSet("list", flag.ExitOnError)
	server := fset.String("server", defaultServer(), "task server address as HOST[:PORT]")
	fset.Parse(args)

	client := dialClient(*server)
	tasks, err := client.GetTasksByStates([]kickoff.TaskState{
		kickoff.TaskPending,
		kickoff.TaskRunning,
		kickoff.TaskCanceling,
	})
	if errors.Is(err, kickoff.ErrTooManyTasks) {
		fatal("Task list is not available because the total number of tasks is too large. " +
			"This command is meant to be used as a debugging tool for small-scale deployments, " +
			"not large scale clusters.")
	}
	if err != nil {
		fatal("Failed to retrieve task list: %v", err)
	}

	color.White("=== Tasks Status ===")
	color.Yellow("The list command is meant to be used as a debugging tool for small-scale " +
		"deployments, not large scale clusters. It will (intentionally) fail when the task " +
		"server has a large number of tasks.")
	for _, t := range tasks {
		dim, bright := stateColors(t.Status.State())
		fmt.Println(bright.Sprint(t.ID.Hex()) + dim.Sprint(": "+t.Status.String()))
	}
	if len(tasks) == 0 {
		color.HiCyan("No tasks.")
	}
}
