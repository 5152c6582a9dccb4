// Command logctl serves and administers an epochlog log over gRPC.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

func main() {
	var parser = flags.NewParser(nil, flags.HelpFlag|flags.PassDoubleDash)

	addCmd(parser, "serve", "Serve a log over gRPC", `
Open a log at the given paths and serve it over gRPC until signaled to exit
(SIGTERM or SIGINT).
`, &cmdServe{})

	addCmd(parser, "append", "Append an entry to a remote log", `
Append a single entry, read from stdin, to a log served by a running logctl
serve instance, and print its logical address.
`, &cmdAppend{})

	addCmd(parser, "read", "Read an entry from a remote log", `
Read the entry at the given logical address and print it to stdout.
`, &cmdRead{})

	addCmd(parser, "scan", "Scan a range of a remote log", `
Stream entries in [begin, end) to stdout, one per line.
`, &cmdScan{})

	addCmd(parser, "truncate", "Advance the begin address of a remote log", `
Advance the log's begin address, permitting reclamation of bytes below it.
`, &cmdTruncate{})

	addCmd(parser, "stat", "Print watermark addresses of a remote log", `
Print the begin, committed-until, flushed-until, and tail addresses of a
running log.
`, &cmdStat{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addCmd(to interface {
	AddCommand(string, string, string, interface{}) (*flags.Command, error)
}, a, b, c string, iface interface{}) *flags.Command {
	var cmd, err = to.AddCommand(a, b, c, iface)
	must(err, "failed to add flags parser command")
	return cmd
}

func must(err error, msg string) {
	if err != nil {
		log.WithError(err).Fatal(msg)
	}
}
