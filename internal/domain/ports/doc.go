// Package ports defines the interfaces (ports) that external adapters must implement.
// Services depend on these so that storage and event dispatch can be swapped
// for in-memory versions in tests.
package ports
