/*
Package resilience provides a circuit breaker for calls into opaque engines.

# Overview

The audio bridge drives a bundled engine it cannot inspect. When the engine
starts failing repeatedly, the breaker opens and calls fail fast so the
hosted application's audio path degrades to silence instead of stalling
the game thread on a broken device.

# Usage

	breaker := resilience.New("audio", resilience.Settings{
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	voice, err := resilience.Do(breaker, func() (audio.Voice, error) {
		return engine.Play(sound)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open
*/
package resilience
