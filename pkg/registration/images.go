package registration

import (
	"fmt"

	"simpleelastix/pkg/raster"
)

// imageList is one of the four ordered image collections of a Session.
type imageList struct {
	// name is used in error messages ("fixed image", "moving mask", ...)
	name  string
	mask  bool
	items []*raster.Image
}

func (l *imageList) len() int { return len(l.items) }

func (l *imageList) all() []*raster.Image {
	return append([]*raster.Image(nil), l.items...)
}

func (l *imageList) check(index int, img *raster.Image) error {
	if raster.IsEmpty(img) {
		return fmt.Errorf("%w: %s at index %d is empty", ErrEmptyInput, l.name, index)
	}
	if l.mask && img.PixelID() != MaskPixelID {
		return fmt.Errorf("%w: %s must be of pixel type %s (%s at index %d is of type %q)",
			ErrInvalidMaskType, l.name, MaskPixelID, l.name, index, img.PixelID())
	}
	return nil
}

func (l *imageList) checkMaskTypes() error {
	for i, img := range l.items {
		if img.PixelID() != MaskPixelID {
			return fmt.Errorf("%w: %s must be of pixel type %s (%s at index %d is of type %q)",
				ErrInvalidMaskType, l.name, MaskPixelID, l.name, i, img.PixelID())
		}
	}
	return nil
}

func (l *imageList) set(img *raster.Image) error {
	if err := l.check(0, img); err != nil {
		return err
	}
	l.items = []*raster.Image{img}
	return nil
}

func (l *imageList) setAll(imgs []*raster.Image) error {
	if len(imgs) == 0 {
		return fmt.Errorf("%w: cannot set %ss from empty list", ErrEmptyInput, l.name)
	}
	for i, img := range imgs {
		if err := l.check(i, img); err != nil {
			return err
		}
	}
	l.items = append([]*raster.Image(nil), imgs...)
	return nil
}

func (l *imageList) add(img *raster.Image) error {
	if err := l.check(len(l.items), img); err != nil {
		return err
	}
	l.items = append(l.items, img)
	return nil
}

func (l *imageList) get(index int) (*raster.Image, error) {
	if index < 0 || index >= len(l.items) {
		return nil, fmt.Errorf("%w: index %d, number of %ss %d", ErrIndexOutOfRange, index, l.name, len(l.items))
	}
	return l.items[index], nil
}

func (l *imageList) remove(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: index %d, number of %ss %d", ErrIndexOutOfRange, index, l.name, len(l.items))
	}
	l.items = append(l.items[:index:index], l.items[index+1:]...)
	return nil
}

func (l *imageList) clear() { l.items = nil }

// SetFixedImage replaces the fixed images with img.
func (s *Session) SetFixedImage(img *raster.Image) error { return s.fixedImages.set(img) }

// SetFixedImages replaces the fixed images with imgs.
func (s *Session) SetFixedImages(imgs []*raster.Image) error { return s.fixedImages.setAll(imgs) }

// AddFixedImage appends img to the fixed images.
func (s *Session) AddFixedImage(img *raster.Image) error { return s.fixedImages.add(img) }

// FixedImage returns the fixed image at index.
func (s *Session) FixedImage(index int) (*raster.Image, error) { return s.fixedImages.get(index) }

// FixedImages returns all fixed images.
func (s *Session) FixedImages() []*raster.Image { return s.fixedImages.all() }

// RemoveFixedImage removes the fixed image at index.
func (s *Session) RemoveFixedImage(index int) error { return s.fixedImages.remove(index) }

// RemoveFixedImages removes all fixed images.
func (s *Session) RemoveFixedImages() { s.fixedImages.clear() }

// NumberOfFixedImages returns the number of fixed images.
func (s *Session) NumberOfFixedImages() int { return s.fixedImages.len() }

// SetMovingImage replaces the moving images with img.
func (s *Session) SetMovingImage(img *raster.Image) error { return s.movingImages.set(img) }

// SetMovingImages replaces the moving images with imgs.
func (s *Session) SetMovingImages(imgs []*raster.Image) error { return s.movingImages.setAll(imgs) }

// AddMovingImage appends img to the moving images.
func (s *Session) AddMovingImage(img *raster.Image) error { return s.movingImages.add(img) }

// MovingImage returns the moving image at index.
func (s *Session) MovingImage(index int) (*raster.Image, error) { return s.movingImages.get(index) }

// MovingImages returns all moving images.
func (s *Session) MovingImages() []*raster.Image { return s.movingImages.all() }

// RemoveMovingImage removes the moving image at index.
func (s *Session) RemoveMovingImage(index int) error { return s.movingImages.remove(index) }

// RemoveMovingImages removes all moving images.
func (s *Session) RemoveMovingImages() { s.movingImages.clear() }

// NumberOfMovingImages returns the number of moving images.
func (s *Session) NumberOfMovingImages() int { return s.movingImages.len() }

// SetFixedMask replaces the fixed masks with mask. Masks must be of
// pixel type MaskPixelID.
func (s *Session) SetFixedMask(mask *raster.Image) error { return s.fixedMasks.set(mask) }

// SetFixedMasks replaces the fixed masks with masks.
func (s *Session) SetFixedMasks(masks []*raster.Image) error { return s.fixedMasks.setAll(masks) }

// AddFixedMask appends mask to the fixed masks.
func (s *Session) AddFixedMask(mask *raster.Image) error { return s.fixedMasks.add(mask) }

// FixedMask returns the fixed mask at index.
func (s *Session) FixedMask(index int) (*raster.Image, error) { return s.fixedMasks.get(index) }

// FixedMasks returns all fixed masks.
func (s *Session) FixedMasks() []*raster.Image { return s.fixedMasks.all() }

// RemoveFixedMask removes the fixed mask at index.
func (s *Session) RemoveFixedMask(index int) error { return s.fixedMasks.remove(index) }

// RemoveFixedMasks removes all fixed masks.
func (s *Session) RemoveFixedMasks() { s.fixedMasks.clear() }

// NumberOfFixedMasks returns the number of fixed masks.
func (s *Session) NumberOfFixedMasks() int { return s.fixedMasks.len() }

// SetMovingMask replaces the moving masks with mask.
func (s *Session) SetMovingMask(mask *raster.Image) error { return s.movingMasks.set(mask) }

// SetMovingMasks replaces the moving masks with masks.
func (s *Session) SetMovingMasks(masks []*raster.Image) error { return s.movingMasks.setAll(masks) }

// AddMovingMask appends mask to the moving masks.
func (s *Session) AddMovingMask(mask *raster.Image) error { return s.movingMasks.add(mask) }

// MovingMask returns the moving mask at index.
func (s *Session) MovingMask(index int) (*raster.Image, error) { return s.movingMasks.get(index) }

// MovingMasks returns all moving masks.
func (s *Session) MovingMasks() []*raster.Image { return s.movingMasks.all() }

// RemoveMovingMask removes the moving mask at index.
func (s *Session) RemoveMovingMask(index int) error { return s.movingMasks.remove(index) }

// RemoveMovingMasks removes all moving masks.
func (s *Session) RemoveMovingMasks() { s.movingMasks.clear() }

// NumberOfMovingMasks returns the number of moving masks.
func (s *Session) NumberOfMovingMasks() int { return s.movingMasks.len() }
