// Package logger provides leveled logging for tmvault CLI commands.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags:
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details
//
// Without flags, only critical warnings and errors are shown.
//
//	Logger.Infof()          // Shown with --verbose or --debug
//	Logger.Debugf()         // Shown only with --debug
//	Logger.Warnf()          // Shown with --verbose or --debug
//	Logger.WarnfAlways()    // Always shown (critical warnings)
//	Logger.Errorf()         // Always shown
//	Logger.ErrorfAndReturn() // Logs and returns the error
//
// Commands create a logger in their PersistentPreRun and pass it down to
// internal components, including the session controller and watchers.
package logger
