// Package fragcache caches the rendered output of named template regions.
//
// A fragment is keyed by the node name of the directive, the fragment name and
// an ordered list of vary values:
//
//	template.<nodename>.<fragment>[.<pk>].<md5(quote(v1):quote(v2):...)>
//
// Stored values are wrapped in a small text envelope that carries the
// internal format version and, with versioning enabled, a content version:
//
//	<internal>::[<version>::]<payload>
//
// A mismatch of either version is a miss, never an error.
//
// Components:
//   - KeyBuilder: composes keys (DefaultKeyBuilder).
//   - codec.Codec[string]: serializes and optionally compresses fragments.
//   - provider.Provider: named byte stores (Ristretto, BigCache, Redis).
//   - Reconciler: marks live regions inside rendered text and re-renders them
//     on every request, hit or miss.
//   - genstore.GenStore: per-fragment generations used by InvalidateFragment.
//
// Failures of the backend, the envelope or the codec never break a render:
// the fragment is rendered fresh. With Options.Debug they are returned
// instead. Malformed tags (*SyntaxError) and bad vary values (*KeyError) are
// always returned.
package fragcache
