//go:build !elastix4d

package registration

// SupportedDimensions lists the image dimensions a Session registers
// execution paths for. Build with the elastix4d tag to add 4-D images.
var SupportedDimensions = []int{2, 3}
