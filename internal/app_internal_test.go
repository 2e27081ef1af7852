package internal

// LockCount reports how many per-key lock entries are live
func (app *App) LockCount() int {
	app.locksMu.Lock()
	defer app.locksMu.Unlock()
	return len(app.locks)
}
