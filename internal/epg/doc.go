// Package epg holds the pure guide transformations: normalizing event times,
// synthesizing placeholder schedules, reconciling a guide with the channel
// roster, shifting channel offsets and answering now/next queries.
//
// Every function takes values and returns new values; inputs are never
// modified, so a published guide can be read concurrently without locking.
package epg
