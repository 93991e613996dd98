// Package formats provides codecs for the RCOL-wrapped GEOM mesh resource
// and the RIG skeleton resource.
package formats

// Note: GEOM decoding is in geom.go, encoding in geom_writer.go
// Note: RIG decoding and encoding are in rig.go
