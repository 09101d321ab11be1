// Package quiz defines the quiz document produced by a conversion and the
// helpers that build the generation prompt and turn raw model output into a
// validated document.
//
// Parse never repairs model output: a document that is not valid JSON or
// that violates any structural rule is rejected with ErrInvalidContent and a
// list of every violation found.
package quiz
