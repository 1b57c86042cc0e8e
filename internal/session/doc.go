// Package session implements the lifecycle of one firing alarm.
//
// A Session starts Active and ends Snoozed, Dismissed or Killed; it never
// returns to Active. Button presses, hardware keys, broadcasts from other
// actors, sensor readings and challenge input are all converted into Events
// and applied one at a time by Run. The transition logic lives in a pure
// state machine that returns the side effects (persist the snooze time,
// update or cancel the notification, stop playback) which Run then hands to
// the collaborators. Collaborator failures are logged and never change the
// outcome of a transition.
package session
