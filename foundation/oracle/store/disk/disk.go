// Package disk implements the store.Archiver interface using one JSON file
// per accepted attestation.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/ardanlabs/oracle/foundation/oracle/store"
)

// Disk represents the serialization implementation for reading and storing
// accepted attestations in their own separate files on disk. This implements
// the store.Archiver interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each record and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified record and stores it on disk in a file labeled
// with the attestation timestamp. Timestamps strictly increase across
// accepted attestations so the name is unique.
func (d *Disk) Write(rec store.Record) error {

	// Marshal the record for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	// Create a new file for this record and name it based on the timestamp.
	f, err := os.OpenFile(d.getPath(rec.Timestamp), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	// Write the new record to disk.
	if _, err := f.Write(data); err != nil {
		return err
	}

	return nil
}

// GetRecord searches the archive on disk to locate and return the contents
// of the record with the specified timestamp.
func (d *Disk) GetRecord(timestamp uint64) (store.Record, error) {

	// Open the record file for the specified timestamp.
	f, err := os.OpenFile(d.getPath(timestamp), os.O_RDONLY, 0600)
	if err != nil {
		return store.Record{}, err
	}
	defer f.Close()

	// Decode the contents of the record.
	var rec store.Record
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return store.Record{}, err
	}

	return rec, nil
}

// ForEach returns an iterator to walk through all the records in timestamp
// order starting with the oldest.
func (d *Disk) ForEach() store.Iterator {
	timestamps, err := d.listTimestamps()

	return &diskIterator{disk: d, timestamps: timestamps, err: err}
}

// Reset will clear out the archive on disk.
func (d *Disk) Reset() error {
	if err := os.RemoveAll(d.dbPath); err != nil {
		return err
	}

	return os.MkdirAll(d.dbPath, 0755)
}

// getPath forms the path to the record with the specified timestamp.
func (d *Disk) getPath(timestamp uint64) string {
	name := strconv.FormatUint(timestamp, 10)
	return path.Join(d.dbPath, fmt.Sprintf("%s.json", name))
}

// listTimestamps reads the archive directory and returns the record
// timestamps in ascending order.
func (d *Disk) listTimestamps() ([]uint64, error) {
	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		return nil, err
	}

	var timestamps []uint64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		ts, err := strconv.ParseUint(strings.TrimSuffix(entry.Name(), ".json"), 10, 64)
		if err != nil {
			continue
		}

		timestamps = append(timestamps, ts)
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	return timestamps, nil
}

// =============================================================================

// diskIterator represents the iteration implementation for walking through
// and reading records on disk. This implements the store.Iterator interface.
type diskIterator struct {
	disk       *Disk      // Access to the record files on disk.
	timestamps []uint64   // Record timestamps in ascending order.
	current    int        // Position of the record being iterated over.
	eoa        bool       // Represents the iterator is at the end of the archive.
	err        error      // Directory read failure captured by ForEach.
}

// Next retrieves the next record from disk. A directory read failure from
// ForEach is returned on the first call while Done still reports false so
// callers checking Done before the error can observe it.
func (di *diskIterator) Next() (store.Record, error) {
	if di.err != nil {
		err := di.err
		di.err = nil
		return store.Record{}, err
	}

	if di.current >= len(di.timestamps) {
		di.eoa = true
		return store.Record{}, errors.New("end of archive")
	}

	rec, err := di.disk.GetRecord(di.timestamps[di.current])
	di.current++

	return rec, err
}

// Done returns the end of archive value.
func (di *diskIterator) Done() bool {
	return di.eoa
}
