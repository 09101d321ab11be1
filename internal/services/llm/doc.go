// Package llm provides an OpenRouter chat client used to generate quizzes.
//
// The client always targets the fixed model identifier in Model. Callers
// supply the API key, endpoint, attribution headers, and request timeout
// through Config.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send one prompt, receive the raw model text.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts, and empty
// content with exponential backoff (base 1s, max 10s, 3 attempts by default).
// A Retry-After header overrides the computed delay. WithRetryMaxAttempts(1)
// disables retries. Context cancellation aborts retries immediately.
package llm
