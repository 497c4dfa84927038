// Package circuitbreaker provides a consecutive-failure circuit breaker.
//
// A Breaker starts Closed and runs every operation. After FailureThreshold
// consecutive failures it opens and rejects calls with ErrOpen, without running
// them, until Cooldown has elapsed. The first call after the cooldown runs as a
// single HalfOpen trial: success closes the breaker, failure opens it again and
// restarts the cooldown. Calls arriving while the trial is in flight are
// rejected with ErrOpen.
//
// Calls that end because their own context was cancelled or timed out, and
// errors rejected by Config.IsFailure, leave the breaker untouched. Results of
// calls that started before a state change are discarded.
//
//	br, err := circuitbreaker.New(circuitbreaker.Config{
//		Name:             "contacts-cache",
//		FailureThreshold: 3,
//		Cooldown:         100 * time.Millisecond,
//	}, circuitbreaker.WithLogger(logger))
//
//	value, err := circuitbreaker.Execute(ctx, br, func(ctx context.Context) (string, error) {
//		return client.Get(ctx, key).Result()
//	})
package circuitbreaker
