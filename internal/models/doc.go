// Package models defines domain entities for the ytfetch download service.
//
// Persistent entities:
//   - [User] : Local accounts with a bcrypt password digest
//   - [Download] : One ledger record per materialize attempt
//
// [Kind] is the tagged request category (audio or video). Each kind resolves to a fixed [KindPolicy]
// describing the format selector, post-processing, and output extension handed to the extractor.
//
// [Status] is the download lifecycle: pending → downloading → completed | failed.
// Transitions are monotonic and terminal states accept no further transitions.
package models
