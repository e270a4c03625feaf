// Package preflight provides readiness checks for the external binaries and
// filesystem paths mediasieve depends on.
//
// The transcode command calls RunAll before dispatching jobs and aborts when a
// required check fails. The status command uses the individual checks to
// display environment health.
package preflight
