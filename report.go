package main

import (
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/owwaedenswil/device-test-harness/framework"
)

func buildReport(results framework.Results) ldvalue.Value {
	failures := ldvalue.ArrayBuild()
	for _, f := range results.Failures {
		errs := ldvalue.ArrayBuild()
		for _, e := range f.Errors {
			errs.Add(ldvalue.String(e.Error()))
		}
		failures.Add(ldvalue.ObjectBuild().
			Set("id", ldvalue.String(f.ID.String())).
			Set("errors", errs.Build()).
			Build())
	}
	return ldvalue.ObjectBuild().
		Set("time", ldvalue.String(time.Now().Format(time.RFC3339))).
		Set("scenarios", ldvalue.Int(len(results.Scenarios))).
		Set("skipped", ldvalue.Int(results.Skipped)).
		Set("failed", ldvalue.Int(len(results.Failures))).
		Set("failures", failures.Build()).
		Build()
}

// writeReport writes the JSON run report atomically, so a crash or a
// concurrent reader never sees a truncated file.
func writeReport(path string, results framework.Results) error {
	data := buildReport(results).JSONString()
	return atomic.WriteFile(path, strings.NewReader(data+"\n"))
}
