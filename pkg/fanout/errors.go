package fanout

import "errors"

var ErrFanOutFailed = errors.New("fan-out failed")
