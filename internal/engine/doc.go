// Package engine contains the gang and economy simulation of the yard.
//
// ARCHITECTURAL RULE: The Engine never mutates a snapshot it was handed.
// Every operation clones the registry, applies its rules to the clone and
// returns the clone with the events it produced. Rejected operations return
// the input snapshot and a Failure value. All randomness comes from the
// random.Source the Engine was built with, and all timeouts are absolute
// timestamps compared against the caller's clock.
package engine
