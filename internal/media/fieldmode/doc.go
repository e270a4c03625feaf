// Package fieldmode classifies a video stream as progressive, interlaced
// top-field-first, interlaced bottom-field-first, or mixed by decoding a short
// frame sample through ffprobe.
package fieldmode
