// Package domain models wildfire-risk prediction data and the proximity
// safety evaluation built on top of it.
//
// # Data Source
//
// Hazard points originate from prediction scenarios: named MongoDB
// collections of documents shaped like {lat, lon, prediction}, produced
// either by uploading a simulation dataset through the API service (which
// runs the external classifier over it) or by storing individual
// predictions directly. The prediction field is a binary classifier output:
// 0 is safe, 1 is hazardous.
//
// # Numeric Encodings
//
// Depending on how a scenario was written, numeric fields may arrive as
// plain JSON numbers, as numeric strings, or wrapped in MongoDB extended
// JSON envelopes such as {"$numberDouble": "11.04"} or {"$numberInt": "1"}.
// [NormalizeNumeric] is the single adapter for all of these; every ingestion
// boundary goes through it rather than unwrapping inline. Points whose
// coordinates fail to normalize to finite values are dropped by the caller,
// counted but never fatal to the batch.
//
// # Distance Model
//
// Distances are computed with the haversine great-circle formula and then
// divided by 111 (approximate kilometers per degree) so they can be compared
// against a threshold expressed in decimal degrees. The area of interest is
// geographically local, so the curvature error of this approximation is
// negligible at the default threshold.
//
// # Safety Verdicts
//
// [Evaluate] derives a per-entity verdict from the hazardous subset of a
// scenario: unsafe iff any hazardous point lies strictly closer than the
// danger threshold. The verdict carries the minimum observed distance for
// diagnostics; evaluation short-circuits on the first point under threshold,
// so a short-circuited MinDistance is the distance to that point, not the
// global minimum.
package domain
