package web

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type ctxKey int

const (
	writerKey ctxKey = iota + 1
	timeKey
)

func setWriter(ctx context.Context, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, writerKey, w)
}

// GetWriter returns the underlying writer for the request.
func GetWriter(ctx context.Context) (http.ResponseWriter, error) {
	v, ok := ctx.Value(writerKey).(http.ResponseWriter)
	if !ok {
		return nil, errors.New("writer not found in context")
	}

	return v, nil
}

// SetTime sets the time into the context.
func SetTime(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, timeKey, now)
}

// GetTime returns the time from the context.
func GetTime(ctx context.Context) time.Time {
	v, ok := ctx.Value(timeKey).(time.Time)
	if !ok {
		return time.Now()
	}

	return v
}
