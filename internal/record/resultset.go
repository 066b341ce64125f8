package record

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/cxip/patent-pipeline/internal/common"
)

// ResultSet accumulates extracted records keyed by patent number and
// mirrors them to a nested JSON file and a flat CSV file. It is an
// explicit object handed to the extraction stage, flushed on a fixed
// cadence and unconditionally at run end; a crash loses at most the
// last partial batch, and re-running merges last-write-wins.
type ResultSet struct {
	jsonPath   string
	csvPath    string
	flushEvery int
	log        *slog.Logger

	records map[string]Record
	dirty   int
}

// LoadResultSet opens (or seeds from) the JSON dataset at jsonPath.
// A missing file is an empty set; a corrupt file is an error, because
// silently starting over would duplicate downstream work.
func LoadResultSet(jsonPath, csvPath string, flushEvery int, logger *slog.Logger) (*ResultSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if flushEvery < 1 {
		flushEvery = 1
	}
	s := &ResultSet{
		jsonPath:   jsonPath,
		csvPath:    csvPath,
		flushEvery: flushEvery,
		log:        logger,
		records:    make(map[string]Record),
	}

	data, err := os.ReadFile(jsonPath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, common.WrapError(err, "read result set")
	}
	var existing []Record
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil, common.WrapError(err, "parse result set")
	}
	for _, rec := range existing {
		s.records[rec.PatentNo] = rec
	}
	logger.Info("resultset.loaded", "path", jsonPath, "records", len(s.records))
	return s, nil
}

// Put validates and merges one record (last-write-wins on patent_no),
// flushing when the configured number of new records has accumulated.
func (s *ResultSet) Put(rec Record) error {
	if err := Validate(rec); err != nil {
		return err
	}
	s.records[rec.PatentNo] = rec
	s.dirty++
	if s.dirty >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

// Len returns the number of distinct records held.
func (s *ResultSet) Len() int { return len(s.records) }

// Has reports whether a record exists for the patent number.
func (s *ResultSet) Has(patentNo string) bool {
	_, ok := s.records[patentNo]
	return ok
}

// Records returns all records sorted by patent number.
func (s *ResultSet) Records() []Record {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatentNo < out[j].PatentNo })
	return out
}

// Flush writes the mirrored JSON and CSV forms atomically (temp file +
// rename), so readers never observe a half-written dataset.
func (s *ResultSet) Flush() error {
	recs := s.Records()

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return common.WrapError(err, "encode result set")
	}
	if err := atomicWrite(s.jsonPath, data); err != nil {
		return common.WrapError(err, "flush result set json")
	}
	if err := atomicWriteCSV(s.csvPath, recs); err != nil {
		return common.WrapError(err, "flush result set csv")
	}

	s.dirty = 0
	s.log.Debug("resultset.flushed", "records", len(recs), "json", s.jsonPath, "csv", s.csvPath)
	return nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func atomicWriteCSV(path string, recs []Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Fields); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := w.Write(rec.Row()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return atomicWrite(path, buf.Bytes())
}
