// Package cache stores AI recommendations so repeated requests for the same
// set of proposals do not call the model again.
//
// Keys come from assistant.RecommendationKey and change whenever the RFP is
// edited or a proposal is added or updated, so entries never need explicit invalidation; the TTL
// only bounds how long stale sets linger. Redis backs the cache in
// production. Noop is used when no Redis address is configured.
package cache
