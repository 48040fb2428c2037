//go:build elastix4d

package registration

// SupportedDimensions lists the image dimensions a Session registers
// execution paths for.
var SupportedDimensions = []int{2, 3, 4}
