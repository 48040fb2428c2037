// Package metaimage reads and writes images in the MetaImage format
// (.mha with inline data, .mhd with a separate raw file), the format the
// elastix executable reads inputs from and writes results to.
package metaimage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"simpleelastix/pkg/raster"
)

var elementTypes = map[raster.PixelID]string{
	raster.UInt8:   "MET_UCHAR",
	raster.Int8:    "MET_CHAR",
	raster.UInt16:  "MET_USHORT",
	raster.Int16:   "MET_SHORT",
	raster.UInt32:  "MET_UINT",
	raster.Int32:   "MET_INT",
	raster.Float32: "MET_FLOAT",
	raster.Float64: "MET_DOUBLE",
}

func pixelIDOf(elementType string) (raster.PixelID, bool) {
	for id, name := range elementTypes {
		if name == elementType {
			return id, true
		}
	}
	return raster.Unknown, false
}

// Write stores img at path as a single .mha file with little-endian data.
func Write(path string, img *raster.Image) error {
	elementType, ok := elementTypes[img.PixelID()]
	if !ok {
		return fmt.Errorf("cannot write pixel type %s as MetaImage", img.PixelID())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating image file: %w", err)
	}
	w := bufio.NewWriter(f)

	dim := img.Dimension()
	direction := img.Direction()
	matrix := make([]float64, 0, dim*dim)
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			matrix = append(matrix, direction.At(r, c))
		}
	}

	fmt.Fprintf(w, "ObjectType = Image\n")
	fmt.Fprintf(w, "NDims = %d\n", dim)
	fmt.Fprintf(w, "BinaryData = True\n")
	fmt.Fprintf(w, "BinaryDataByteOrderMSB = False\n")
	fmt.Fprintf(w, "CompressedData = False\n")
	fmt.Fprintf(w, "TransformMatrix = %s\n", joinFloats(matrix))
	fmt.Fprintf(w, "Offset = %s\n", joinFloats(img.Origin()))
	fmt.Fprintf(w, "ElementSpacing = %s\n", joinFloats(img.Spacing()))
	fmt.Fprintf(w, "DimSize = %s\n", joinInts(img.Size()))
	fmt.Fprintf(w, "ElementType = %s\n", elementType)
	fmt.Fprintf(w, "ElementDataFile = LOCAL\n")

	if err := writeData(w, img); err != nil {
		f.Close()
		return fmt.Errorf("error writing image data: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("error writing image file: %w", err)
	}
	return f.Close()
}

func writeData(w io.Writer, img *raster.Image) error {
	size := img.PixelID().Size()
	buf := make([]byte, size*img.NumberOfPixels())
	le := binary.LittleEndian
	for i, v := range img.Data() {
		b := buf[i*size:]
		switch img.PixelID() {
		case raster.UInt8:
			b[0] = uint8(v)
		case raster.Int8:
			b[0] = uint8(int8(v))
		case raster.UInt16:
			le.PutUint16(b, uint16(v))
		case raster.Int16:
			le.PutUint16(b, uint16(int16(v)))
		case raster.UInt32:
			le.PutUint32(b, uint32(v))
		case raster.Int32:
			le.PutUint32(b, uint32(int32(v)))
		case raster.Float32:
			le.PutUint32(b, math.Float32bits(float32(v)))
		case raster.Float64:
			le.PutUint64(b, math.Float64bits(v))
		}
	}
	_, err := w.Write(buf)
	return err
}

// header holds the fields Read understands.
type header struct {
	ndims      int
	size       []int
	spacing    []float64
	origin     []float64
	matrix     []float64
	pixelID    raster.PixelID
	msb        bool
	compressed bool
	dataFile   string
	channels   int
}

// Read loads the image at path.
func Read(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening image file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("error reading MetaImage header of %s: %w", path, err)
	}

	data := io.Reader(r)
	if h.dataFile != "LOCAL" {
		dataPath := h.dataFile
		if !filepath.IsAbs(dataPath) {
			dataPath = filepath.Join(filepath.Dir(path), dataPath)
		}
		raw, err := os.Open(dataPath)
		if err != nil {
			return nil, fmt.Errorf("error opening image data file: %w", err)
		}
		defer raw.Close()
		data = bufio.NewReader(raw)
	}

	img := raster.New(h.pixelID, h.size...)
	if err := readData(data, h, img.Data()); err != nil {
		return nil, fmt.Errorf("error reading image data of %s: %w", path, err)
	}
	if h.spacing != nil {
		if err := img.SetSpacing(h.spacing...); err != nil {
			return nil, err
		}
	}
	if h.origin != nil {
		if err := img.SetOrigin(h.origin...); err != nil {
			return nil, err
		}
	}
	if h.matrix != nil {
		if err := img.SetDirection(mat.NewDense(h.ndims, h.ndims, h.matrix)); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func readHeader(r *bufio.Reader) (*header, error) {
	h := &header{channels: 1}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("header ended before ElementDataFile: %w", err)
		}
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "NDims":
			if h.ndims, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("invalid NDims %q", value)
			}
		case "DimSize":
			if h.size, err = parseInts(value); err != nil {
				return nil, fmt.Errorf("invalid DimSize: %w", err)
			}
		case "ElementSpacing":
			if h.spacing, err = parseFloats(value); err != nil {
				return nil, fmt.Errorf("invalid ElementSpacing: %w", err)
			}
		case "Offset", "Origin", "Position":
			if h.origin, err = parseFloats(value); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
		case "TransformMatrix", "Rotation", "Orientation":
			if h.matrix, err = parseFloats(value); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
		case "ElementType":
			id, ok := pixelIDOf(value)
			if !ok {
				return nil, fmt.Errorf("unsupported ElementType %q", value)
			}
			h.pixelID = id
		case "BinaryDataByteOrderMSB", "ElementByteOrderMSB":
			h.msb = strings.EqualFold(value, "True")
		case "CompressedData":
			h.compressed = strings.EqualFold(value, "True")
		case "ElementNumberOfChannels":
			if h.channels, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("invalid ElementNumberOfChannels %q", value)
			}
		case "ElementDataFile":
			h.dataFile = value
			return h, h.validate()
		}
	}
}

// maxPixels bounds the pixel count Read allocates for.
const maxPixels = 1 << 30

func (h *header) validate() error {
	switch {
	case h.ndims < 1:
		return fmt.Errorf("missing NDims")
	case len(h.size) != h.ndims:
		return fmt.Errorf("DimSize has %d components, NDims is %d", len(h.size), h.ndims)
	}
	if err := h.checkSize(); err != nil {
		return err
	}
	switch {
	case h.pixelID == raster.Unknown:
		return fmt.Errorf("missing ElementType")
	case h.compressed:
		return fmt.Errorf("compressed MetaImage data is not supported")
	case h.channels != 1:
		return fmt.Errorf("multi-channel images are not supported")
	case h.spacing != nil && len(h.spacing) != h.ndims:
		return fmt.Errorf("ElementSpacing has %d components, NDims is %d", len(h.spacing), h.ndims)
	case h.origin != nil && len(h.origin) != h.ndims:
		return fmt.Errorf("Offset has %d components, NDims is %d", len(h.origin), h.ndims)
	case h.matrix != nil && len(h.matrix) != h.ndims*h.ndims:
		return fmt.Errorf("TransformMatrix has %d components, NDims is %d", len(h.matrix), h.ndims)
	}
	return nil
}

func (h *header) checkSize() error {
	n := 1
	for i, d := range h.size {
		if d <= 0 {
			return fmt.Errorf("DimSize component %d must be positive, got %d", i, d)
		}
		if d > maxPixels/n {
			return fmt.Errorf("DimSize %v exceeds %d pixels", h.size, maxPixels)
		}
		n *= d
	}
	return nil
}

func readData(r io.Reader, h *header, out []float64) error {
	size := h.pixelID.Size()
	buf := make([]byte, size*len(out))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	var order binary.ByteOrder = binary.LittleEndian
	if h.msb {
		order = binary.BigEndian
	}
	for i := range out {
		b := buf[i*size:]
		switch h.pixelID {
		case raster.UInt8:
			out[i] = float64(b[0])
		case raster.Int8:
			out[i] = float64(int8(b[0]))
		case raster.UInt16:
			out[i] = float64(order.Uint16(b))
		case raster.Int16:
			out[i] = float64(int16(order.Uint16(b)))
		case raster.UInt32:
			out[i] = float64(order.Uint32(b))
		case raster.Int32:
			out[i] = float64(int32(order.Uint32(b)))
		case raster.Float32:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case raster.Float64:
			out[i] = math.Float64frombits(order.Uint64(b))
		}
	}
	return nil
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
