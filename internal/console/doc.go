// Package console drives the sample state machine interactively.
//
// A Driver owns a Machine and its Host. Start runs the machine on its own
// goroutine, resuming it once per poll interval; Exec feeds it console
// commands from any other goroutine:
//
//	d := console.New(config.Default(), recorder)
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
//	exit, err := d.Exec([]string{"set-timer", "0", "500", "repeat-on"})
//
// Cancelling ctx stops the loop, which then cleans up and finalizes the
// machine. Wait returns the outcome of that teardown.
package console
