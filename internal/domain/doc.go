// Package domain models EMWIN (Emergency Managers Weather Information Network)
// bulletin files and the two lookup dimensions they reference.
//
// # Data Source
//
// EMWIN receivers write every broadcast product to disk as one file. The
// ingestion command scans such a directory and records one BulletinFile per
// unique filename, plus a Station row per originator and a Product row per
// product code.
//
// # Filename Grammar
//
//	A_<wmo header><originator><ddhhmm>_C_<comm id>_<yyyymmddhhmmss>_<message id>-<version>-<product>.TXT
//
// Example:
//
//	A_SPCMESO1234KWBC170115_C_KWIN_20250517011502_321540-2-STPTPTCN.TXT
//	  wmo header  SPCMESO1234
//	  originator  KWBC         (exactly four characters)
//	  ddhhmm      170115       (day 17, 01:15)
//	  comm id     KWIN
//	  timestamp   20250517011502
//	  message id  321540
//	  version     2
//	  product     STPTPTCN
//
// The WMO header and the originator are adjacent with no separator; the
// originator is always the four characters immediately before the six-digit
// ddhhmm group, and the header is whatever precedes it.
//
// # Timestamps
//
// The 14-digit group is the transmission time in UTC and becomes
// BulletinTimestamp. The ddhhmm group carries no year or month, so
// SourceDateTime borrows both from BulletinTimestamp. A bulletin issued on the
// last day of a month and transmitted after midnight on the 1st therefore gets
// a SourceDateTime in the wrong month. This is a known approximation awaiting
// a product decision; the raw Day, Hour and Minute strings are always stored
// so the value can be recomputed later.
//
// When either group does not form a valid calendar time, both timestamps fall
// back to the current time and Day, Hour and Minute are set to "00".
//
// # Dimensions
//
// Station and Product attributes are optional. Known values come from a small
// built-in table (see BuiltinDefaults), an operator-supplied
// defaults file, or external station lookups. Merges are fill-if-empty: a
// populated attribute is never overwritten, see StationInfo.FillMissing.
package domain
