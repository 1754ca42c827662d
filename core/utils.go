package core

import (
	"reflect"

	"github.com/encodeous/strand/state"
)

func Get[T state.NyModule](s *state.State) T {
	t := reflect.TypeOf((*T)(nil)).Elem() // reflect.TypeFor[T]() on go >= 1.22
	return s.Modules[t.String()].(T)
}
