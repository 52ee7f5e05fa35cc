// Package settings models the resolved capture configuration for one device:
// geometry, pixel format, encoder knobs, and the ffmpeg command templates that
// consume them.
//
// Templates carry {placeholder} tokens that Expand substitutes from the
// settings; unresolved placeholders are left untouched. The closed pixel
// format table drives frame sizing for the capture loop. Store persists the
// settings and the user's preview preference as a TOML document guarded by a
// cross-process file lock.
package settings
