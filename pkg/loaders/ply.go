package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-light-transport/pkg/core"
)

// ErrInvalidPLY is returned for malformed or truncated PLY data
var ErrInvalidPLY = errors.New("invalid PLY data")

// Mesh holds the triangles of a PLY file. Polygons are split into fans
// around their first vertex.
type Mesh struct {
	Vertices []core.Vec3
	Normals  []core.Vec3 // Per-vertex normals, empty if the file has none
	UVs      []core.Vec2 // Per-vertex texture coordinates, empty if the file has none
	Faces    []int       // Three vertex indices per triangle
}

// TriangleCount returns the number of triangles after fan splitting
func (m *Mesh) TriangleCount() int { return len(m.Faces) / 3 }

// plyProperty is one property line of an element. List properties carry
// the type of their length prefix.
type plyProperty struct {
	name      string
	typ       string
	list      bool
	countType string
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

type plyHeader struct {
	format   string
	elements []plyElement
}

// LoadPLY reads a PLY mesh from disk
func LoadPLY(filename string) (*Mesh, error) {
	start := time.Now()
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	mesh, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	core.Logger().Debug("loaded PLY mesh", "path", filename,
		"vertices", len(mesh.Vertices), "triangles", mesh.TriangleCount(), "duration", time.Since(start))
	return mesh, nil
}

// ReadPLY decodes ASCII and binary PLY data. Elements other than vertex
// and face are skipped.
func ReadPLY(r io.Reader) (*Mesh, error) {
	br := bufio.NewReader(r)
	header, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}

	var values valueReader
	switch header.format {
	case "ascii":
		scanner := bufio.NewScanner(br)
		scanner.Split(bufio.ScanWords)
		values = &asciiReader{scanner: scanner}
	case "binary_little_endian":
		values = &binaryReader{r: br, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryReader{r: br, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidPLY, header.format)
	}

	mesh := &Mesh{}
	for _, el := range header.elements {
		switch el.name {
		case "vertex":
			err = readVertices(values, el, mesh)
		case "face":
			err = readFaces(values, el, mesh)
		default:
			err = skipElement(values, el)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: truncated %s data", ErrInvalidPLY, el.name)
			}
			return nil, err
		}
	}

	for _, idx := range mesh.Faces {
		if idx < 0 || idx >= len(mesh.Vertices) {
			return nil, fmt.Errorf("%w: vertex index %d out of range", ErrInvalidPLY, idx)
		}
	}
	return mesh, nil
}

func readPLYHeader(r *bufio.Reader) (*plyHeader, error) {
	header := &plyHeader{}
	magic, err := r.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("%w: missing ply magic", ErrInvalidPLY)
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: header not terminated", ErrInvalidPLY)
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "end_header":
			if header.format == "" {
				return nil, fmt.Errorf("%w: no format line", ErrInvalidPLY)
			}
			return header, nil
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: bad format line", ErrInvalidPLY)
			}
			header.format = parts[1]
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: bad element line", ErrInvalidPLY)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: invalid element count %q", ErrInvalidPLY, parts[2])
			}
			header.elements = append(header.elements, plyElement{name: parts[1], count: count})
		case "property":
			if len(header.elements) == 0 {
				return nil, fmt.Errorf("%w: property before element", ErrInvalidPLY)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			el := &header.elements[len(header.elements)-1]
			el.props = append(el.props, prop)
		}
		// comment and obj_info lines are ignored
	}
}

func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) >= 4 && parts[0] == "list" {
		prop := plyProperty{name: parts[3], typ: parts[2], list: true, countType: parts[1]}
		if typeSize(prop.countType) == 0 || typeSize(prop.typ) == 0 {
			return plyProperty{}, fmt.Errorf("%w: unknown type in list %q", ErrInvalidPLY, prop.name)
		}
		return prop, nil
	}
	if len(parts) < 2 || parts[0] == "list" {
		return plyProperty{}, fmt.Errorf("%w: invalid property definition", ErrInvalidPLY)
	}
	if typeSize(parts[0]) == 0 {
		return plyProperty{}, fmt.Errorf("%w: unknown type %q", ErrInvalidPLY, parts[0])
	}
	return plyProperty{name: parts[1], typ: parts[0]}, nil
}

// typeSize returns the size in bytes of a PLY scalar type, or 0 if unknown
func typeSize(dataType string) int {
	switch dataType {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}

// valueReader yields the scalars of the body one at a time
type valueReader interface {
	read(dataType string) (float64, error)
}

type binaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) read(dataType string) (float64, error) {
	buf := b.buf[:typeSize(dataType)]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return 0, err
	}
	switch dataType {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(buf))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(buf)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(buf))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(buf)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(buf))), nil
	default:
		return math.Float64frombits(b.order.Uint64(buf)), nil
	}
}

type asciiReader struct {
	scanner *bufio.Scanner
}

func (a *asciiReader) read(dataType string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	v, err := strconv.ParseFloat(a.scanner.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s value %q", ErrInvalidPLY, dataType, a.scanner.Text())
	}
	return v, nil
}

// readList reads a list property's length prefix and its entries
func readList(values valueReader, prop plyProperty) ([]float64, error) {
	n, err := values.read(prop.countType)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative list length", ErrInvalidPLY)
	}
	list := make([]float64, int(n))
	for i := range list {
		if list[i], err = values.read(prop.typ); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func skipElement(values valueReader, el plyElement) error {
	for i := 0; i < el.count; i++ {
		for _, prop := range el.props {
			var err error
			if prop.list {
				_, err = readList(values, prop)
			} else {
				_, err = values.read(prop.typ)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func readVertices(values valueReader, el plyElement, mesh *Mesh) error {
	// Slots 0-2 position, 3-5 normal, 6-7 texture coordinates
	slot := make([]int, len(el.props))
	var found [8]bool
	for i, prop := range el.props {
		s := -1
		switch prop.name {
		case "x":
			s = 0
		case "y":
			s = 1
		case "z":
			s = 2
		case "nx":
			s = 3
		case "ny":
			s = 4
		case "nz":
			s = 5
		case "u", "s", "texture_u":
			s = 6
		case "v", "t", "texture_v":
			s = 7
		}
		if prop.list {
			s = -1
		}
		slot[i] = s
		if s >= 0 {
			found[s] = true
		}
	}
	if !found[0] || !found[1] || !found[2] {
		return fmt.Errorf("%w: vertex element lacks x, y or z", ErrInvalidPLY)
	}
	hasNormals := found[3] && found[4] && found[5]
	hasUVs := found[6] && found[7]

	mesh.Vertices = make([]core.Vec3, el.count)
	if hasNormals {
		mesh.Normals = make([]core.Vec3, el.count)
	}
	if hasUVs {
		mesh.UVs = make([]core.Vec2, el.count)
	}

	var v [8]float64
	for i := 0; i < el.count; i++ {
		for j, prop := range el.props {
			if prop.list {
				if _, err := readList(values, prop); err != nil {
					return err
				}
				continue
			}
			value, err := values.read(prop.typ)
			if err != nil {
				return err
			}
			if slot[j] >= 0 {
				v[slot[j]] = value
			}
		}
		mesh.Vertices[i] = core.NewVec3(v[0], v[1], v[2])
		if hasNormals {
			mesh.Normals[i] = core.NewVec3(v[3], v[4], v[5]).Normalize()
		}
		if hasUVs {
			mesh.UVs[i] = core.NewVec2(v[6], v[7])
		}
	}
	return nil
}

func readFaces(values valueReader, el plyElement, mesh *Mesh) error {
	indices := -1
	for i, prop := range el.props {
		if prop.list && (prop.name == "vertex_indices" || prop.name == "vertex_index") {
			indices = i
		}
	}
	if indices < 0 {
		return fmt.Errorf("%w: face element lacks vertex_indices", ErrInvalidPLY)
	}

	mesh.Faces = make([]int, 0, 3*el.count)
	for i := 0; i < el.count; i++ {
		for j, prop := range el.props {
			if !prop.list {
				if _, err := values.read(prop.typ); err != nil {
					return err
				}
				continue
			}
			list, err := readList(values, prop)
			if err != nil {
				return err
			}
			if j != indices {
				continue
			}
			if len(list) < 3 {
				return fmt.Errorf("%w: face %d has %d vertices", ErrInvalidPLY, i, len(list))
			}
			for k := 1; k+1 < len(list); k++ {
				mesh.Faces = append(mesh.Faces, int(list[0]), int(list[k]), int(list[k+1]))
			}
		}
	}
	return nil
}
