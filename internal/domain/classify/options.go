// Package classify derives a terminal outcome for a respondent session.
package classify

import "time"

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithInactivityTimeout sets how long a session may idle before it is
// inferred Closed.
func WithInactivityTimeout(timeout time.Duration) Option {
	return func(c *Classifier) {
		if timeout > 0 {
			c.inactivityTimeout = timeout
		}
	}
}
