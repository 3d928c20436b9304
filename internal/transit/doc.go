// Package transit models the route payload returned by the conocerecorrido endpoint
// and flattens it into warehouse rows.
//
// Payloads are kept as untyped trees (decoded JSON with numbers preserved as
// json.Number) so that absent fields can be told apart from zero values. Leaf
// fields are read with GetPath, which never fails; structural fields (the arrays
// being iterated and the objects being descended into) are type-checked and a
// mismatch surfaces as an *ExpansionError.
//
// A record with w schedule windows and stops carrying k1..ks services expands into
// exactly w * (k1 + ... + ks) rows.
package transit
