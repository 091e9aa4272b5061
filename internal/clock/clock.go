package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time.Now so pricing timestamps can be pinned in tests.
type Clock interface {
	Now() time.Time
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

type SystemClock struct{}

func NewSystemClock() Clock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
