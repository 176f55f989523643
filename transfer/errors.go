package transfer

import "fmt"

// UnsupportedTypeError is returned when a file's key suffix is not in the
// upload allow-list. It fails the transfer before any network call is made.
type UnsupportedTypeError struct {
	Ext string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q: only .mp4 and .png files can be uploaded", e.Ext)
}
