package util

import (
	"context"
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

type key string

const (
	requestIDKey = key("x-request-id")
	actorIDKey   = key("actor-id")
)

// WithRequestID returns a context carrying a request id. A new id is
// generated when the provided id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = ulid.MustNew(ulid.Now(), rand.Reader).String()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id from context, or "" if not present.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithActorID returns a context carrying the submitting actor's id.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// GetActorID returns the actor id from context, or "" if not present.
func GetActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorIDKey).(string)
	return id
}
