// Package dispatch delivers due send runs to the live subscriber list.
//
// A pass selects pending runs whose scheduled time has arrived, oldest first.
// Each run is rendered once and sent to every currently active subscriber
// with a personalized unsubscribe link. Recipient failures become BOUNCED
// delivery events and never abort the run. The run is closed, with its
// events and counters, in a single guarded write after all sends settle.
//
// A crash between the first send and that final write leaves the run due,
// and the next pass sends it again to every active subscriber.
package dispatch
