// Package filter evaluates declarative metadata filters against probed media.
//
// A filter is a mapping of selectors to conditions:
//
//	format:
//	  duration: [gte, 600]
//	  format_name: matroska,webm
//	"stream:v:0":
//	  codec_name: h264
//	  field_mode: [[neq, interlaced_bff], [neq, mixed_or_unknown]]
//	"count:a": [gte, 1]
//
// A condition is a scalar (equality), an [operator, value] pair, or a list of
// pairs that must all hold. The probed value is converted to the type of the
// expected value before comparing.
package filter
