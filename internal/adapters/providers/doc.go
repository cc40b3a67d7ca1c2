// Package providers adapts external quote APIs to the domain model.
//
// Each upstream service gets one adapter. Adapters act as a translation
// boundary in the Anti-Corruption Layer sense:
//
//   - External DTOs stay unexported inside the adapter file
//   - External failures map to domain errors before they leave the package
//   - External data is validated before a domain Quote is produced
//   - Upstream API changes stop at the adapter, never reaching the core
//
// # Adapters
//
//   - [Quotable]: quotable.io, batch random quotes plus full-text search
//   - [ZenQuotes]: zenquotes.io, batch quotes with derived stable IDs
//   - [FavQs]: favqs.com, authenticated quotes with tag search
//
// All adapters implement ports.QuoteProvider. Quotable and FavQs also
// implement ports.QuoteSearcher; callers discover search support via
// type assertion.
//
// # Error Taxonomy
//
// Every failure leaving this package is one of two domain errors:
//
//   - [domain.ProviderError]: the service could not be reached or
//     answered outside the 2xx range. Includes circuit-open and
//     retries-exhausted results from the underlying client.
//   - [domain.ParseError]: the service answered 2xx but the payload
//     could not be translated into domain quotes.
//
// Both classes count against the source's health and move the
// orchestrator to its next candidate; the split exists so operators can
// tell a dead upstream from a changed one.
//
// # Response Encoding
//
// Requests advertise "gzip, br" and the shared plumbing transparently
// decompresses either coding before decoding JSON. An encoding the
// adapter cannot reverse is a [domain.ParseError].
//
// # Rate Limiting
//
// [WithMinInterval] wraps any provider with a minimum spacing between
// upstream calls. ZenQuotes in particular throttles aggressively on its
// free tier, so the composition root wraps it based on configuration.
//
// # Adding a Provider
//
//  1. Define unexported DTOs matching the service's JSON
//  2. Embed base for request plumbing, logging, and error mapping
//  3. Translate DTOs to domain.Quote, stamping Source with the
//     provider name and skipping entries that fail validation
//  4. Return a ParseError when a 2xx payload yields no usable quotes
package providers
