package pattern

import (
	"errors"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
)

func isChannelClosed(err error) bool {
	return errors.Is(err, errs.New(errs.ChannelClosed))
}
