// Package services defines the error taxonomy shared by the external
// service clients and the pipeline. Sentinel errors classify failures into
// the categories the run loop cares about: session-fatal (auth, quota),
// transient, job-fatal, and configuration problems.
package services
