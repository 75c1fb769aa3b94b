// Package logging builds the zap logger used for operator diagnostics.
//
// Diagnostics always go to stderr so that standard output stays reserved for
// extracted log bytes. A log file with size based rotation can be added.
package logging
