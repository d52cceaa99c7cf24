// Package harness runs YAML command scenarios against a fresh Server and
// compares the outcome with golden files.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	modules:                     # optional; built-in fixtures when absent
//	  system: ../modules/system
//	  third_party: ../modules/thirdparty
//	steps:
//	  - command: new
//	    module: Oscillator       # interface name or module id
//	    name: Osc
//	  - command: set
//	    path: Osc.gain
//	    value: 11
//	    expect: CONSTRAINT_ERROR # default SUCCESS
//	  - command: set
//	    path: Osc.gain
//	    value: 7
//	    source: module_implementation # default host_api
//	assertions:
//	  - type: value
//	    path: Osc.gain
//	    value: 7
//	  - type: host_sends
//	    sends: ["Osc.frequency=440", "Osc.waveform=\"sine\""]
//
// Values are YAML scalars: integers become Int, numbers with a fraction
// become Float, strings become String and null (or no value) is a bang.
// Module directories are relative to the scenario file.
//
// # Assertion Types
//
//   - value: the endpoint at path holds value
//   - node_exists / node_absent: a node is or is not at path
//   - host_sends: the exact sequence of values sent to the host
//   - notifications: the exact sequence of sink notifications
//   - notification_count: the number of sink notifications
//
// # Deterministic Testing
//
// Every scenario gets its own Server with a recording host and sink, an
// in-memory snapshot store, sequential snapshot ids and a deterministic
// clock, so the golden dump is identical across runs:
//
//	go test ./internal/harness -update
//
// regenerates testdata/golden.
package harness
