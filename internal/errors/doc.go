// Package errors provides structured, actionable error messages for devstatic.
//
// Every failure that stops the process (bad configuration, a port that cannot
// be bound, a failing task step) is reported as an *Error carrying a stable
// code, a category, a longer explanation and a hint on how to fix it.
//
// # Error Categories
//
//   - config: invalid options, unreadable config files, bad rule patterns
//   - bind: listener startup failures
//   - runtime: failures while serving
//   - cli: command line usage problems
//
// # Usage
//
//	err := errors.New("E124").
//	    WithDetail(`pattern "foo/(" is not a valid regular expression`).
//	    Wrap(cause)
//
//	fmt.Print(err.Format())
//	// Output:
//	// ERROR E124: Invalid rule pattern
//	//
//	//   pattern "foo/(" is not a valid regular expression
//	//
//	//   Hint: Patterns use RE2 syntax and are anchored at "/" automatically
package errors
