package pattern

import "errors"

var errStageFailed = errors.New("stage failed")
