package journal

import "errors"

var ErrClosed = errors.New("journal closed")
