package convert

import "github.com/slac-epics/streamdevice/internal/buffer"

// Converter is the contract every codec implements.
//
// Print methods append the wire form of a value to out and leave out
// unchanged on failure. Scan methods read from the start of in and return the
// number of bytes consumed, or -1 with an error. With FlagSkip a scan still
// returns the consumed length but a zero value.
type Converter interface {
	// Classify inspects the descriptor only and picks the typed entry point.
	Classify(f Format) (Kind, error)

	PrintDouble(f Format, out *buffer.Buffer, v float64) error
	PrintSigned(f Format, out *buffer.Buffer, v int64) error
	PrintUnsigned(f Format, out *buffer.Buffer, v uint64) error
	PrintString(f Format, out *buffer.Buffer, v string) error

	ScanDouble(f Format, in []byte) (int, float64, error)
	ScanSigned(f Format, in []byte) (int, int64, error)
	ScanUnsigned(f Format, in []byte) (int, uint64, error)
	ScanString(f Format, in []byte) (int, string, error)
}

// Unsupported fails every typed operation. Codecs embed it and override the
// operations they implement.
type Unsupported struct{}

func (Unsupported) PrintDouble(Format, *buffer.Buffer, float64) error { return ErrUnsupported }
func (Unsupported) PrintSigned(Format, *buffer.Buffer, int64) error   { return ErrUnsupported }
func (Unsupported) PrintUnsigned(Format, *buffer.Buffer, uint64) error {
	return ErrUnsupported
}
func (Unsupported) PrintString(Format, *buffer.Buffer, string) error { return ErrUnsupported }

func (Unsupported) ScanDouble(Format, []byte) (int, float64, error)  { return -1, 0, ErrUnsupported }
func (Unsupported) ScanSigned(Format, []byte) (int, int64, error)    { return -1, 0, ErrUnsupported }
func (Unsupported) ScanUnsigned(Format, []byte) (int, uint64, error) { return -1, 0, ErrUnsupported }
func (Unsupported) ScanString(Format, []byte) (int, string, error)   { return -1, "", ErrUnsupported }
