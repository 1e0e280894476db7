// Package run executes external programs and collects their output.
//
// A Runner holds the configuration: working directory, environment edits,
// line observers, exit code enforcement and capture. It can be configured
// once and executed many times.
//
// Every execution is driven by an Executor:
//   - spawns the child with stdin on the null device
//   - stdout and stderr each go to their own pipe
//   - one worker per pipe reads it line by line, calls the observers and,
//     if capturing, buffers the text
//   - the process wait runs next to both workers, never before them
//   - all three are joined before the Output (or an error) is returned
//
// Threads pins each activity to an OS thread, Tasks schedules them as
// errgroup tasks; both share spawning, draining and result assembly.
//
// Data flow:
//
//	Runner --command()--> Command --Executor--> start()
//	                                              |
//	                  +---------------+-----------+-----------+
//	                  |               |                       |
//	          drain(stdout)    drain(stderr)            wait()
//	                  |               |                       |
//	                  +------> assemble() <-------------------+
//	                               |
//	                            Output
//
// Invariants:
//   - Lines within one stream reach observers in production order; there
//     is no order between the two streams.
//   - Any failure discards captured text, no partial Output is returned.
//   - Execution cannot be cancelled or timed out. The context only carries
//     logging attributes, the child always runs to completion.
package run
