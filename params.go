package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/owwaedenswil/device-test-harness/framework"
)

type commandParams struct {
	configPath string
	serialPort string
	reportPath string
	filters    framework.RegexFilters
	debug      bool
	debugAll   bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.configPath, "config", "", "path to a TOML config file")
	fs.StringVar(&c.serialPort, "serial", "", "serial device path for on-hardware scenarios (overrides config)")
	fs.StringVar(&c.reportPath, "report", "", "write a JSON report to this path (overrides config)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select scenarios to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select scenarios not to run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed scenarios")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all scenarios")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	return true
}

// describeCommand reconstructs an equivalent command line, so a failing CI
// run can be rerun locally as-is.
func (c *commandParams) describeCommand(program string) string {
	var b commandBuilder
	b.add(program)
	if c.configPath != "" {
		b.add("-config", c.configPath)
	}
	if c.serialPort != "" {
		b.add("-serial", c.serialPort)
	}
	if c.reportPath != "" {
		b.add("-report", c.reportPath)
	}
	if c.debug {
		b.add("-debug")
	}
	if c.debugAll {
		b.add("-debug-all")
	}
	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
