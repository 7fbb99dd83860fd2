// Package pipeline turns watched-directory events into renames.
//
// For each event the pipeline applies the inclusion filter, waits the settle
// delay, asks the captioner for a description, sanitizes it into a filename
// stem, and moves the file to the first free name. Failures are reported as an
// Outcome and never stop the loop; the file is left untouched.
package pipeline
