// Package challenge implements the arithmetic gate shown before an alarm may
// be dismissed.
//
// A Generator draws one of eight question templates uniformly; the text and
// the expected answer are always built together. A Gate collects up to six
// keypad digits, redraws the question on every wrong submission and becomes
// permanently Correct once the right answer is submitted.
package challenge
