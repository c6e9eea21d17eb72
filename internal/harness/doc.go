// Package harness runs ledger conformance scenarios.
//
// A scenario is a YAML file listing operations to apply (op, caller, args),
// the outcome each one must have (success with an optional result subset, or
// a specific error code), and assertions over the emitted events and the
// final records. Every scenario runs against a fresh in-memory backend with
// a step clock and sequential flow tokens, so the event trace is
// byte-for-byte reproducible and can be compared against golden files.
//
// Example:
//
//	name: like_once
//	description: a second like by the same identity is rejected
//	setup:
//	  - {op: CreateState, as: admin}
//	  - {op: CreateVideo, as: alice, args: {description: hi, media_url: "http://x"}}
//	flow:
//	  - {op: LikeVideo, as: bob, args: {video: 0}, expect: {result: {like_count: 1}}}
//	  - {op: LikeVideo, as: bob, args: {video: 0}, expect: {error: AlreadyLiked}}
//	assertions:
//	  - {type: event_count, event: video.liked, count: 1}
package harness
