//go:build !linux

package sandbox

// Apply is a no-op: Landlock is Linux-only.
func (p *Policy) Apply() error {
	p.Logger.Warn("sandbox: Landlock is not available on this platform, continuing unconfined")
	return nil
}
