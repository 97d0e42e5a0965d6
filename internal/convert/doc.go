// Package convert owns the format-converter contract and the built-in codecs.
//
// Ownership boundary:
// - format descriptor and format-string parsing
// - converter interface and the conversion-character registry
// - exponential (%m), raw float (%R) and SHDLC packet (%Z) codecs
package convert
