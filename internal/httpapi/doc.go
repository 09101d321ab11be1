// Package httpapi exposes the conversion pipeline over HTTP.
//
// POST /v1/quizzes runs one conversion synchronously for the owner named in
// the X-Owner-Key header and maps failures onto status codes by category.
// The job endpoints read the run journal.
package httpapi
