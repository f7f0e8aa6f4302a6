package media

import "errors"

// ErrNotEpisode is returned for files that match no episode naming pattern.
// It is an expected outcome, not a failure.
var ErrNotEpisode = errors.New("filename does not describe an episode")
