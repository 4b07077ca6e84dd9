// Package document holds the addressing types shared by the narration engine:
// document positions (numeric pages or opaque reflowable locations), the
// per-position sentence list, the playback cursor, and the section and
// table-of-contents records used for audiobook export.
package document
