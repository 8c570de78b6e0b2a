// Package harness runs YAML-defined simulation scenarios end to end: it
// builds a network and its controls from a scenario file, drives the
// orchestrator with a deterministic mass-balance solver, and checks the
// scenario's assertions or compares the full trace against a golden file.
//
// Scenarios are the conformance surface of the control engine: every
// ordering and backtracking guarantee has a scenario pinning it.
package harness
