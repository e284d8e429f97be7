// Command kickoff is the CLI for the kickoff task dispatch system.
// One binary serves all roles: submitting and inspecting tasks, running
// a worker, and running the central server.
package main

import (
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(0)
	godotenv.Load()

	args := os.Args[1:]
	if len(args) == 0 {
		printHelp()
		return
	}
	subcmd := args[0]
	rest := args[1:]
	switch subcmd {
	case "new":
		cmdNew(rest)
	case "cancel":
		cmdCancel(rest)
	case "wait":
		cmdWait(rest)
	case "info":
		cmdInfo(rest)
	case "list":
		cmdList(rest)
	case "stats":
		cmdStats(rest)
	case "worker":
		cmdWorker(rest)
	case "server":
		cmdServer(rest)
	case "help", "-h", "-help", "--help":
		printHelp()
	default:
		color.Yellow("Invalid command %q", subcmd)
		printHelp()
		os.Exit(-1)
	}
}

// fatal reports an application error and exits with the error code
// shared by every subcommand.
func fatal(format string, args ...interface{}) {
	color.Red(format, args...)
	os.Exit(-1)
}

// defaultServer is the -server default: $KICKOFF_SERVER when set
// (possibly via a .env file), localhost otherwise.
func defaultServer() string {
	if s := os.Getenv("KICKOFF_SERVER"); s != "" {
		return s
	}
	return "localhost"
}

// dialClient creates a client for a HOST[:PORT] string, or exits on a
// malformed address.
func dialClient(server string) *kickoff.Client {
	host, port, err := parseServerAddr(server)
	if err != nil {
		fatal("Failed to parse server address: %v", err)
	}
	return kickoff.NewClient(host, port)
}

func printHelp() {
	color.HiGreen("Kickoff")
	color.White(`
"Kickoff" is a minimalistic task dispatch system for heterogeneous
compute clusters, mapping tasks to machines with matching capabilities.
Launching a task just means enqueueing a command line; whatever
compatible worker process dequeues the task executes it.

Kickoff does NOT manage the distribution of payloads such as your
task's executable content and input/output data (not even task stdout
is stored). These are to be managed by a separate system of your
choice, invoked via the commands you launch. This separation is
intentional: kickoff does one thing only, dispatching tasks to workers.

Worker processes can be started anywhere and in any quantity, as long
as they have network access to the central server. Desired machine
capabilities are specified per task with resource tags, fully generic
strings that let you define your own capability groups ad-hoc.

Usage:
`)
	usage := color.New(color.FgGreen)
	usage.Println("  kickoff new <command to execute> [-server HOST[:PORT]]")
	usage.Println("      [-require <required resource tags>] [-want <optional resource tags>]")
	usage.Println("  kickoff cancel <task id> [-server HOST[:PORT]]")
	usage.Println("  kickoff wait <task id>... [-server HOST[:PORT]]")
	usage.Println("  kickoff info <task id> [-server HOST[:PORT]]")
	usage.Println("  kickoff list [-server HOST[:PORT]]")
	usage.Println("  kickoff stats [-server HOST[:PORT]]")
	usage.Println("  kickoff worker [-server HOST[:PORT]] [-have <resource tags>] [-config FILE]")
	usage.Println("  kickoff server [-port N] [-metrics ADDR] [-config FILE]")
	color.White(`
Resource tag lists are separated by space, comma or semicolon. The
server address defaults to $KICKOFF_SERVER, and its port to 3355.
`)
}
