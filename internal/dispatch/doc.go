// Package dispatch posts candidate sets to an ordered list of reranking
// endpoints and returns the first usable response.
//
// Endpoints are a preference list, not a pool: each is tried once, strictly
// in order, and the first 2xx response with a JSON body wins. There is no
// retry within an endpoint and no racing between endpoints. When every
// endpoint fails the caller receives an *UnreachableError carrying the last
// observed failure; it matches services.ErrNetworkUnreachable with errors.Is.
// Individual endpoint failures are logged at WARN and otherwise ignored.
package dispatch
