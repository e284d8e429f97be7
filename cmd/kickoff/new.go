package main

import (
	"strings"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
)

// cmdNew parses its options by hand instead of with a FlagSet: the
// documented form puts the command words first ("new <command...>
// -require TAGS"), and a FlagSet would stop at the first word and
// swallow the options into the command.
func cmdNew(args []string) {
	opts, words, err := splitNamedOptions(args, "server", "require", "want")
	if err != nil {
		fatal("%v", err)
	}
	server := opts["server"]
	if server == "" {
		server = defaultServer()
	}

	command := strings.Join(words, " ")
	if strings.TrimSpace(command) == "" {
		fatal("Need a command to execute.")
	}

	client := dialClient(server)
	info := kickoff.TaskCreateInfo{
		Command: command,
		Schedule: kickoff.TaskSchedule{
			RequiredResources: parseResourceTags(opts["require"]),
			OptionalResources: parseResourceTags(opts["want"]),
		},
	}

	color.Cyan("Creating task")
	id, err := client.CreateTask(info)
	if err != nil {
		fatal("Failed to create task: %v", err)
	}
	color.Green("Success! Created task:")
	color.HiGreen(id.Hex())
}
