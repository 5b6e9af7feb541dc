package main

import (
	"fmt"
	"os"

	"github.com/owwaedenswil/device-test-harness/scenarios"
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	config, reportPath, err := loadRunConfig(params)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Command: %s\n", params.describeCommand(os.Args[0]))
	if desc := params.filters.Describe(); desc != "" {
		fmt.Println("Some scenarios will be skipped based on the filter criteria for this run:")
		fmt.Println(desc)
	}
	if config.SerialPort == "" {
		fmt.Println("No serial device configured; on-hardware scenarios will be skipped")
	}
	fmt.Println()
	fmt.Println("Running scenario suite")

	scenarioLogger := ConsoleScenarioLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results := scenarios.RunSuite(config, params.filters.AsFilter, &scenarioLogger)

	fmt.Println()
	printResults(results)

	if reportPath != "" {
		if err := writeReport(reportPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "could not write report: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}
	if !results.OK() {
		os.Exit(1)
	}
}
