// Command dhcplens classifies devices from DHCP server logs, either as
// a one-shot analysis or as a long-running HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/HerbHall/dhcplens/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "version":
		fmt.Printf("dhcplens %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `dhcplens - DHCP log device classification

Usage:
  dhcplens analyze -input <logfile> [-config <file>] [-output <file>]
  dhcplens serve [-config <file>]
  dhcplens version

Commands:
  analyze   Parse a DHCP log file and print classification results as JSON
  serve     Run the HTTP API server
  version   Print version information
`)
}
