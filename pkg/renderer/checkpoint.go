package renderer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/df07/go-light-transport/pkg/core"
)

var (
	// ErrCheckpointMismatch is returned when a checkpoint belongs to a
	// different scene configuration or image size
	ErrCheckpointMismatch = errors.New("checkpoint does not match the render")
	// ErrCheckpointCorrupt is returned when a checkpoint cannot be decoded
	ErrCheckpointCorrupt = errors.New("checkpoint is corrupt")
)

const checkpointVersion = 1

var checkpointMagic = [4]byte{'L', 'T', 'C', 'K'}

// CheckpointHeader describes the render a checkpoint was taken from
type CheckpointHeader struct {
	Spp      int
	NextSpp  int
	Adaptive bool
	Hash     [32]byte
	Width    int
	Height   int
}

// checkpointHeader is the fixed-size, little endian layout of CheckpointHeader
type checkpointHeader struct {
	Magic    [4]byte
	Version  uint32
	Spp      uint32
	NextSpp  uint32
	Adaptive uint8
	Hash     [32]byte
	Width    uint32
	Height   uint32
}

type pixelRecord struct {
	Sum    [3]float64
	LumSum float64
	LumSq  float64
	Count  uint32
}

type varianceRecord struct {
	SampleCount     uint32
	NextSampleCount uint32
	Mean            float64
	RunningVariance float64
}

// renderState is everything a checkpoint restores
type renderState struct {
	header   CheckpointHeader
	film     *Film
	samplers [][]byte
	passes   []int
	records  []SampleRecord
}

// writeCheckpoint encodes the render state. The layout is the header, the
// film buffers, the per-tile sampler states and the variance records.
func writeCheckpoint(w io.Writer, h CheckpointHeader, film *Film, tiles []*Tile, variance *VarianceGrid) error {
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	wire := checkpointHeader{
		Magic:   checkpointMagic,
		Version: checkpointVersion,
		Spp:     uint32(h.Spp),
		NextSpp: uint32(h.NextSpp),
		Hash:    h.Hash,
		Width:   uint32(h.Width),
		Height:  uint32(h.Height),
	}
	if h.Adaptive {
		wire.Adaptive = 1
	}
	if err := binary.Write(bw, le, &wire); err != nil {
		return err
	}

	pixels := make([]pixelRecord, len(film.sum))
	for i := range pixels {
		s := film.sum[i]
		pixels[i] = pixelRecord{
			Sum:    [3]float64{s.X, s.Y, s.Z},
			LumSum: film.lumSum[i],
			LumSq:  film.lumSq[i],
			Count:  uint32(film.count[i]),
		}
	}
	if err := binary.Write(bw, le, pixels); err != nil {
		return err
	}

	if err := binary.Write(bw, le, uint32(len(tiles))); err != nil {
		return err
	}
	for _, tile := range tiles {
		state, err := tile.Sampler.MarshalBinary()
		if err != nil {
			return err
		}
		if err := binary.Write(bw, le, uint32(len(state))); err != nil {
			return err
		}
		if _, err := bw.Write(state); err != nil {
			return err
		}
		if err := binary.Write(bw, le, uint32(tile.PassesCompleted)); err != nil {
			return err
		}
	}

	records := make([]varianceRecord, len(variance.Records))
	for i, r := range variance.Records {
		records[i] = varianceRecord{
			SampleCount:     uint32(r.SampleCount),
			NextSampleCount: uint32(r.NextSampleCount),
			Mean:            r.Mean,
			RunningVariance: r.RunningVariance,
		}
	}
	if err := binary.Write(bw, le, uint32(len(records))); err != nil {
		return err
	}
	if err := binary.Write(bw, le, records); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadCheckpointHeader decodes and checks the header of a checkpoint
func ReadCheckpointHeader(r io.Reader) (CheckpointHeader, error) {
	var wire checkpointHeader
	if err := binary.Read(r, binary.LittleEndian, &wire); err != nil {
		return CheckpointHeader{}, fmt.Errorf("%w: header: %v", ErrCheckpointCorrupt, err)
	}
	if wire.Magic != checkpointMagic {
		return CheckpointHeader{}, fmt.Errorf("%w: bad magic %q", ErrCheckpointCorrupt, wire.Magic[:])
	}
	if wire.Version != checkpointVersion {
		return CheckpointHeader{}, fmt.Errorf("%w: version %d", ErrCheckpointMismatch, wire.Version)
	}
	return CheckpointHeader{
		Spp:      int(wire.Spp),
		NextSpp:  int(wire.NextSpp),
		Adaptive: wire.Adaptive != 0,
		Hash:     wire.Hash,
		Width:    int(wire.Width),
		Height:   int(wire.Height),
	}, nil
}

// readCheckpoint decodes a checkpoint for a render with the given hash,
// film size, tile count and variance tile count. Nothing is applied to the
// render until the whole file has been read.
func readCheckpoint(r io.Reader, hash [32]byte, width, height, numTiles, numRecords int) (*renderState, error) {
	br := bufio.NewReader(r)
	le := binary.LittleEndian

	h, err := ReadCheckpointHeader(br)
	if err != nil {
		return nil, err
	}
	if h.Hash != hash {
		return nil, fmt.Errorf("%w: scene configuration changed", ErrCheckpointMismatch)
	}
	if h.Width != width || h.Height != height {
		return nil, fmt.Errorf("%w: image is %dx%d, checkpoint is %dx%d",
			ErrCheckpointMismatch, width, height, h.Width, h.Height)
	}

	corrupt := func(what string, err error) error {
		return fmt.Errorf("%w: %s: %v", ErrCheckpointCorrupt, what, err)
	}

	pixels := make([]pixelRecord, width*height)
	if err := binary.Read(br, le, pixels); err != nil {
		return nil, corrupt("film", err)
	}
	film := NewFilm(width, height)
	for i, p := range pixels {
		film.sum[i] = core.NewVec3(p.Sum[0], p.Sum[1], p.Sum[2])
		film.lumSum[i] = p.LumSum
		film.lumSq[i] = p.LumSq
		film.count[i] = int(p.Count)
	}

	var count uint32
	if err := binary.Read(br, le, &count); err != nil {
		return nil, corrupt("tile count", err)
	}
	if int(count) != numTiles {
		return nil, fmt.Errorf("%w: %d tiles, checkpoint has %d", ErrCheckpointMismatch, numTiles, count)
	}
	state := &renderState{header: h, film: film}
	for i := 0; i < numTiles; i++ {
		var n uint32
		if err := binary.Read(br, le, &n); err != nil {
			return nil, corrupt("sampler state", err)
		}
		if n > 1024 {
			return nil, corrupt("sampler state", fmt.Errorf("length %d", n))
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, corrupt("sampler state", err)
		}
		var passes uint32
		if err := binary.Read(br, le, &passes); err != nil {
			return nil, corrupt("tile passes", err)
		}
		state.samplers = append(state.samplers, buf)
		state.passes = append(state.passes, int(passes))
	}

	if err := binary.Read(br, le, &count); err != nil {
		return nil, corrupt("variance tile count", err)
	}
	if int(count) != numRecords {
		return nil, fmt.Errorf("%w: %d variance tiles, checkpoint has %d", ErrCheckpointMismatch, numRecords, count)
	}
	records := make([]varianceRecord, numRecords)
	if err := binary.Read(br, le, records); err != nil {
		return nil, corrupt("variance records", err)
	}
	for _, r := range records {
		state.records = append(state.records, SampleRecord{
			SampleCount:     int(r.SampleCount),
			NextSampleCount: int(r.NextSampleCount),
			Mean:            r.Mean,
			RunningVariance: r.RunningVariance,
		})
	}
	return state, nil
}

// SaveCheckpoint writes the render state to path. The file is replaced
// atomically.
func (r *Renderer) SaveCheckpoint(path string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	header := CheckpointHeader{
		Spp:      r.currentSpp,
		NextSpp:  r.nextSpp,
		Adaptive: r.config.Adaptive,
		Hash:     r.config.SceneHash,
		Width:    r.film.Width,
		Height:   r.film.Height,
	}
	if err := writeCheckpoint(file, header, r.film, r.tiles, r.variance); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores the render state from path. On error the render
// state is left untouched.
func (r *Renderer) LoadCheckpoint(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer file.Close()

	state, err := readCheckpoint(file, r.config.SceneHash, r.film.Width, r.film.Height, len(r.tiles), len(r.variance.Records))
	if err != nil {
		return err
	}

	samplers := make([]*core.UniformSampler, len(r.tiles))
	for i, data := range state.samplers {
		samplers[i] = core.NewUniformSampler(0, 0)
		if err := samplers[i].UnmarshalBinary(data); err != nil {
			return fmt.Errorf("%w: tile %d: %v", ErrCheckpointCorrupt, i, err)
		}
	}

	copy(r.film.sum, state.film.sum)
	copy(r.film.count, state.film.count)
	copy(r.film.lumSum, state.film.lumSum)
	copy(r.film.lumSq, state.film.lumSq)
	for i, tile := range r.tiles {
		tile.Sampler = samplers[i]
		tile.PassesCompleted = state.passes[i]
	}
	copy(r.variance.Records, state.records)
	r.currentSpp = state.header.Spp
	r.nextSpp = state.header.NextSpp
	return nil
}
