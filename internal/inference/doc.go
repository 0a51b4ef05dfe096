// Package inference sends stage calls to the provider their route names.
//
// The Dispatcher owns one rate limiter per provider and maps provider errors
// onto the service markers the workflow acts on: missing routes or provider
// credentials halt, rate limits and timeouts are transient.
package inference
