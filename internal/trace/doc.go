// Package trace records the callbacks a running Machine makes.
//
// A Recorder implements demo.Sink. Each record is stamped with a sequence
// number from a logical Clock, so two runs of the same scenario produce
// identical traces regardless of wall-clock timing. Observers attached to
// a Recorder see every event as it is recorded; Printer is the observer
// behind the console's output and store.SessionWriter persists events.
package trace
