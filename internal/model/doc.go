// Package model loads the crack classifier artifact and owns the runtime
// sessions that execute it.
//
// Load resolves the artifact's custom objects through an explicit Registry,
// opens a Pool of ONNX Runtime sessions and returns a Handle. A Handle is
// either loaded or unavailable; an unavailable Handle records why and refuses
// to score, so the process keeps serving a degraded health state.
package model
