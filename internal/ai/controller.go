package ai

// Controller is a tick-driven agent controller.
type Controller interface {
	// Start runs the initial state entry.
	Start()

	// Stop halts planning and cancels any path in progress.
	Stop()

	// Tick advances the controller by dt seconds.
	Tick(dt float64)

	// State returns the current state.
	State() State
}
