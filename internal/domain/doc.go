// Package domain models acoustic localization results and their flattened,
// identifier-bearing output rows.
//
// # Data Source
//
// Events come from an external localization pipeline that writes one JSON
// document per run:
//
//	{"localized_events": [ {<event>}, {<event>}, ... ]}
//
// Each event carries the fields listed on [RawEvent]. Timestamps are already
// localized upstream (e.g. "2022-02-07T20:00:03.500000-05:00"); no time-zone
// conversion happens here.
//
// # Normalization
//
// Loading ([LoadBatch]) rounds every tdoas element to 7 decimal places and
// every distance_residuals element to 3, independently per element, keeping
// length and order. Rounding goes through the shortest decimal rendering at
// the requested precision, so applying it twice yields the same value.
//
// # ID Generation
//
// Event IDs are derived from the batch, not hashed. For event i:
//
//	digits  = DigitsOnly(RenderTimestamp(start_timestamp))   "202202072000035000000500"
//	trimmed = digits minus its last 8 characters             "2022020720000350"
//	index   = i zero-padded to at least 3 digits             "005"
//	id      = [prefix "_"] trimmed "_" index                 "cmarsh_2022020720000350_005"
//
// The 8-character cut is a legacy convention tied to the upstream textual
// timestamp format (fraction and offset digits). It is kept exactly; digit
// strings of 8 characters or fewer collapse to "" and still produce an id
// such as "_003". IDs are unique within one batch and prefix only, so the
// batch ordinal must be the load order, see [EventBatch.Indexed].
//
// # Output Schema
//
// [Columns] is the allow-list of output fields, in order. [ProjectEvent]
// copies exactly those fields; residual_rms and any unknown input keys are
// dropped.
package domain
