package cacheinfra

import (
	"context"
	"reflect"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// validateFetchFn checks fetchFn has the signature func(context.Context) (T, error)
// and returns T.
func validateFetchFn(fetchFn any) (reflect.Type, error) {
	if fetchFn == nil {
		return nil, &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return nil, &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}

	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return nil, &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	if !fnType.In(0).Implements(contextType) {
		return nil, &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	if !fnType.Out(1).Implements(errorType) {
		return nil, &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return fnType.Out(0), nil
}

// callFetch invokes a validated fetch function and unpacks its results. A
// failed load yields a nil value whatever the loader returned with the error.
func callFetch(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return value, nil
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	if e := results[1]; e.IsValid() && !e.IsNil() {
		return nil, e.Interface().(error)
	}

	var result any
	if v := results[0]; v.IsValid() && v.CanInterface() {
		result = v.Interface()
	}
	return result, nil
}
