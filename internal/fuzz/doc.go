// Package fuzztests houses Go fuzz harnesses for the Python front end and the
// canonical pipeline. They guard against panics, hangs and provenance errors
// on arbitrary input.
package fuzztests
