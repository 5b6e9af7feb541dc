package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/owwaedenswil/device-test-harness/scenarios"
)

// fileConfig is the TOML config file schema:
//
//	[serial]
//	port = "/dev/ttyACM0"
//
//	[frame]
//	address = 82
//
//	[timeouts]
//	wait_ms = 5000
//
//	[report]
//	path = "results.json"
type fileConfig struct {
	Serial struct {
		Port string `toml:"port"`
	} `toml:"serial"`
	Frame struct {
		Address int `toml:"address"`
	} `toml:"frame"`
	Timeouts struct {
		WaitMillis int `toml:"wait_ms"`
	} `toml:"timeouts"`
	Report struct {
		Path string `toml:"path"`
	} `toml:"report"`
}

// loadRunConfig merges the optional config file with command-line overrides
// into the scenario config and the report path.
func loadRunConfig(params commandParams) (scenarios.Config, string, error) {
	var config scenarios.Config
	reportPath := ""

	if params.configPath != "" {
		var raw fileConfig
		if _, err := toml.DecodeFile(params.configPath, &raw); err != nil {
			return scenarios.Config{}, "", fmt.Errorf("load config: %w", err)
		}
		config.SerialPort = raw.Serial.Port
		config.FrameAddress = raw.Frame.Address
		config.WaitTimeout = time.Duration(raw.Timeouts.WaitMillis) * time.Millisecond
		reportPath = raw.Report.Path
	}
	if params.serialPort != "" {
		config.SerialPort = params.serialPort
	}
	if params.reportPath != "" {
		reportPath = params.reportPath
	}
	return config, reportPath, nil
}
