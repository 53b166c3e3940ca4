/*
Package resilience provides a consecutive-failure circuit breaker.

A breaker starts closed. Threshold consecutive failures open it; after the
cooldown it lets a single probe through (half-open) and closes again if the
probe succeeds.

	b := resilience.New("revoke", resilience.Settings{
		Threshold: 3,
		Cooldown:  30 * time.Second,
	})
	if err := b.Allow(); err != nil {
		return err
	}
	b.Record(doWork() == nil)

The scenario runner keeps one breaker per scenario so that a script which
keeps timing out is quarantined instead of tying up the host realm.
*/
package resilience
