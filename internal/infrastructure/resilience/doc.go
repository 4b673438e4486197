/*
Package resilience provides circuit breakers keyed by name.

A breaker opens after a run of consecutive failures and refuses work for a
cooldown. It then lets a single trial through: success closes it, failure
opens it again.

	set := resilience.NewSet(resilience.Settings{Failures: 3, Cooldown: 30 * time.Second})

	b := set.Get("js/loop.js")
	if err := b.Allow(); err != nil {
		return err
	}
	b.Report(runOnce() == nil)

The runner uses one breaker per snippet so a snippet that keeps hitting its
evaluation deadline stops tying up the server.
*/
package resilience
