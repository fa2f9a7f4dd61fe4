// Package logging provides structured, file-based logging with rotation for
// docretrieve. Every command writes JSON logs to ~/.docretrieve/logs/ and to
// stderr; the --debug flag lowers the level from info to debug.
package logging
