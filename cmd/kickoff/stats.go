package main

import (
	"flag"
	"fmt"

	"github.com/fatih/color"
)

func cmdStats(args []string) {
	fset := flag.NewFlagSet("stats", flag.ExitOnError)
	server := fset.String("server", defaultServer(), "task server address as HOST[:PORT]")
	fset.Parse(args)

	client := dialClient(*server)
	stats, err := client.GetStats()
	if err != nil {
		fatal("Failed to retrieve task server stats: %v", err)
	}

	fmt.Println(color.HiCyanString("%d", stats.NumPending) + color.CyanString(" tasks pending"))
	fmt.Println(color.HiGreenString("%d", stats.NumRunning) + color.GreenString(" tasks running"))
	fmt.Println(color.HiRedString("%d", stats.NumCanceling) + color.RedString(" tasks canceling"))
	fmt.Println(color.HiMagentaString("%d", stats.NumFinished) + color.MagentaString(" tasks finished."))
}
