// Command camclip records short camera clips from the terminal.
//
// The record command opens the configured camera and microphone, then reads
// single-letter commands from stdin: r to record, s to stop, p to play the
// finished clip with ffplay, u to submit, d to delete, a to abort, i for
// status and q to quit. Recording stops on its own when the countdown runs
// out.
package main
