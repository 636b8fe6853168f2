// Package static serves files from the project root once the router has
// resolved a request to a path, and answers /favicon.ico from memory.
package static
