package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
)

func cmdCancel(args []string) {
	fset := flag.NewFlagSet("cancel", flag.ExitOnError)
	server := fset.String("server", defaultServer(), "task server address as HOST[:PORT]")
	fset.Parse(args)
	if len(fset.Args()) != 1 {
		fatal("Need one task id to cancel.")
	}
	id, err := kickoff.ParseTaskID(fset.Args()[0])
	if err != nil {
		fatal("Failed to parse hexadecimal task ID: %v", fset.Args()[0])
	}

	client := dialClient(*server)
	err = client.MarkTaskShouldCancel(id)
	if errors.Is(err, kickoff.ErrTaskNotFound) {
		fatal("Failed to mark task for cancellation. Task may not exist (e.g. was already canceled, finished, or never started).")
	}
	if err != nil {
		fatal("Failed to mark task for cancellation: %v", err)
	}
	fmt.Println(color.GreenString("Success! Canceled task: ") + color.HiGreenString(id.Hex()))
}
