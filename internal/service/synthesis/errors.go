package synthesis

import "errors"

// ErrJobNotOwned indicates the authenticated subject tried to act on a
// job belonging to a different owner.
var ErrJobNotOwned = errors.New("job not owned by caller")
