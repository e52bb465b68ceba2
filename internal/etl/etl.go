// Package etl prepares the flat evidence artifacts served by the query path:
// the normalized Cancer Hotspots JSON and the cBioPortal study CSVs. Each
// transform is re-runnable; outputs are rewritten wholesale.
package etl

import "errors"

// ErrUpstreamUnavailable marks a failure to acquire a source dataset, as
// opposed to a failure transforming one already on disk.
var ErrUpstreamUnavailable = errors.New("upstream dataset unavailable")
