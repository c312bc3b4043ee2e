// Package workflows contains the business logic behind each CLI command,
// kept separate from the cobra layer so it can be tested without a
// terminal. Each workflow takes an Options struct and returns a Result
// struct; presentation belongs to the caller.
package workflows
