// Package llm provides an OpenRouter chat completion client.
//
// The model, token limit, and temperature travel with each Request so one
// client serves every pipeline stage routed to OpenRouter. Responses are read
// tolerantly: message content, streaming-shaped deltas, legacy text, and tool
// call arguments are all accepted.
//
// The client retries HTTP 408/429/5xx responses, network timeouts, and empty
// completions with exponential backoff, honouring Retry-After. Transient lets
// callers make the same decision after retries are exhausted.
package llm
