// Package questions projects the installer's remote question objects into
// plain Go values and writes answers back.
//
// Every remote child of the question root is classified by the interfaces it
// advertises and then projected by the matching variant's projector. Nothing
// is cached: each List re-enumerates and re-reads every property. The Merger
// turns the root's add/remove signals into one stream of payload-free
// QuestionsChanged events for clients that want to know when to re-list.
package questions
