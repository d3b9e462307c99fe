package rsfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aligator/rsfs/checkpoint"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Volume holds the whole state of a mounted RSFS volume:
// the allocation table, the directory and the open sessions.
//
// All exported methods lock the volume, so it is safe to share a Volume between goroutines.
// The table, directory and sessions are always modified together inside that single lock.
type Volume struct {
	mutex sync.Mutex

	device BlockDevice
	log    logrus.FieldLogger

	table     table
	directory directory
	sessions  [MaxSessions]session

	id    uuid.UUID
	label string

	// sector is a scratch buffer for single sector transfers of metadata.
	sector []byte
}

// Option configures a Volume.
type Option func(v *Volume)

// WithLogger sets the logger used by the volume. By default logrus.StandardLogger() is used.
func WithLogger(log logrus.FieldLogger) Option {
	return func(v *Volume) {
		v.log = log
	}
}

// WithLabel sets the label written by Format. It is cut to 11 bytes at a rune boundary.
func WithLabel(label string) Option {
	return func(v *Volume) {
		v.label = trimLabel(label)
	}
}

// NewVolume creates an unmounted Volume on the given device.
// Call Mount or Format before using it, until then all operations return ErrNotFormatted.
func NewVolume(device BlockDevice, opts ...Option) *Volume {
	v := &Volume{
		device: device,
		log:    logrus.StandardLogger(),
		sector: make([]byte, SectorSize),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mount creates a Volume on the device and mounts it.
// An unformatted device gets formatted.
func Mount(device BlockDevice, opts ...Option) (*Volume, error) {
	v := NewVolume(device, opts...)
	if err := v.Mount(); err != nil {
		return nil, checkpoint.From(err)
	}
	return v, nil
}

// Mount loads the table and the directory from the device.
// If the device does not contain a formatted volume, it gets formatted.
// Sessions opened before are dropped, as their state does not belong to the loaded volume.
func (v *Volume) Mount() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.dropSessions()
	if err := v.load(); err != nil {
		return checkpoint.From(err)
	}

	if !v.table.isFormatted() {
		v.log.Warn("no formatted volume found, formatting device")
		return checkpoint.From(v.format())
	}

	v.log.WithFields(logrus.Fields{
		"id":    v.id,
		"label": v.label,
	}).Debug("mounted volume")
	return nil
}

// Format initializes an empty volume and writes it to the device.
// All files and open sessions are lost.
func (v *Volume) Format() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return checkpoint.From(v.format())
}

func (v *Volume) format() error {
	v.table.format()
	v.directory.format()
	v.dropSessions()
	v.id = uuid.New()

	v.log.WithFields(logrus.Fields{
		"id":    v.id,
		"label": v.label,
	}).Info("formatted volume")
	return checkpoint.From(v.persist())
}

func (v *Volume) dropSessions() {
	for i := range v.sessions {
		v.sessions[i] = session{}
	}
}

// load reads the table sectors and the directory sector.
func (v *Volume) load() error {
	data := make([]byte, TableSectors*SectorSize)
	for sector := 0; sector < TableSectors; sector++ {
		if err := v.readSector(uint32(sector), data[sector*SectorSize:(sector+1)*SectorSize]); err != nil {
			return err
		}
	}
	if err := v.table.UnmarshalBinary(data); err != nil {
		return err
	}

	if !v.table.isFormatted() {
		return nil
	}

	if err := v.readSector(DirectorySector, v.sector); err != nil {
		return err
	}
	if err := v.directory.decode(v.sector); err != nil {
		return err
	}

	var header volumeHeader
	if err := binary.Read(bytes.NewReader(v.sector[volumeHeaderOffset:]), binary.LittleEndian, &header); err != nil {
		return checkpoint.Wrap(err, ErrCorrupt)
	}
	v.id = uuid.UUID(header.VolumeID)
	v.label = strings.TrimRight(string(header.VolumeLabel[:]), " \x00")
	return nil
}

// persist writes the table and the directory back to the device, always both together.
func (v *Volume) persist() error {
	data, err := v.table.MarshalBinary()
	if err != nil {
		return checkpoint.From(err)
	}
	for sector := 0; sector < TableSectors; sector++ {
		if err := v.writeSector(uint32(sector), data[sector*SectorSize:(sector+1)*SectorSize]); err != nil {
			return err
		}
	}

	for i := range v.sector {
		v.sector[i] = 0
	}
	if err := v.directory.encode(v.sector); err != nil {
		return err
	}

	header := volumeHeader{VolumeID: v.id}
	copy(header.VolumeLabel[:], strings.Repeat(" ", len(header.VolumeLabel)))
	copy(header.VolumeLabel[:], v.label)
	buf := bytes.NewBuffer(make([]byte, 0, 27))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return checkpoint.From(err)
	}
	copy(v.sector[volumeHeaderOffset:], buf.Bytes())

	return v.writeSector(DirectorySector, v.sector)
}

func (v *Volume) readSector(sector uint32, p []byte) error {
	return checkpoint.Wrapf(v.device.ReadSector(sector, p), "reading sector `%d`: %w", sector, ErrDevice)
}

func (v *Volume) writeSector(sector uint32, p []byte) error {
	return checkpoint.Wrapf(v.device.WriteSector(sector, p), "writing sector `%d`: %w", sector, ErrDevice)
}

func (v *Volume) checkFormatted() error {
	if !v.table.isFormatted() {
		return checkpoint.New(ErrNotFormatted)
	}
	return nil
}

// ID returns the id generated when the volume was formatted.
func (v *Volume) ID() uuid.UUID {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.id
}

// Label returns the volume label.
func (v *Volume) Label() string {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.label
}

// Free returns the amount of free bytes on the volume.
func (v *Volume) Free() (int64, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return 0, err
	}
	return int64(v.table.freeCount()) * ClusterSize, nil
}

// List returns all files in directory order.
func (v *Volume) List() ([]DirEntry, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return nil, err
	}
	return v.directory.list(), nil
}

// FormatListing renders entries as text, one line per file with the name padded to 25 characters.
func FormatListing(entries []DirEntry) string {
	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "%-25s %d\n", entry.Name, entry.Size)
	}
	return b.String()
}

// ListTo writes the text listing of the directory into buf and returns the amount of bytes used.
// If the listing does not fit, nothing is written and ErrBufferTooSmall is returned.
func (v *Volume) ListTo(buf []byte) (int, error) {
	entries, err := v.List()
	if err != nil {
		return 0, checkpoint.From(err)
	}

	text := FormatListing(entries)
	if len(text) > len(buf) {
		return 0, checkpoint.Wrap(fmt.Errorf("listing needs `%d` bytes, got `%d`", len(text), len(buf)), ErrBufferTooSmall)
	}
	return copy(buf, text), nil
}

// Stat returns the directory entry of the file called name.
func (v *Volume) Stat(name string) (DirEntry, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return DirEntry{}, err
	}

	slot, err := v.directory.find(name)
	if err != nil {
		return DirEntry{}, checkpoint.From(err)
	}
	return DirEntry{Name: v.directory[slot].name, Size: int64(v.directory[slot].size)}, nil
}

// Create creates a new empty file.
func (v *Volume) Create(name string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return err
	}

	if _, err := v.create(name); err != nil {
		return checkpoint.From(err)
	}
	return checkpoint.From(v.persist())
}

func (v *Volume) create(name string) (int, error) {
	slot, err := v.directory.create(&v.table, name)
	if err != nil {
		return -1, err
	}

	v.log.WithFields(logrus.Fields{
		"name":    name,
		"slot":    slot,
		"cluster": v.directory[slot].firstCluster,
	}).Debug("created file")
	return slot, nil
}

// Remove deletes the file and frees all its clusters.
// Open files cannot be removed.
func (v *Volume) Remove(name string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return err
	}

	if err := v.remove(name); err != nil {
		return checkpoint.From(err)
	}
	return checkpoint.From(v.persist())
}

func (v *Volume) remove(name string) error {
	if slot, err := v.directory.find(name); err == nil && v.sessions[slot].used {
		return checkpoint.Wrap(fmt.Errorf("removing `%s`", name), ErrFileOpen)
	}

	slot, err := v.directory.remove(&v.table, name)
	if err != nil {
		return err
	}

	v.log.WithFields(logrus.Fields{
		"name": name,
		"slot": slot,
	}).Debug("removed file")
	return nil
}

// Rename changes the name of a file. Open files keep their session.
func (v *Volume) Rename(oldName, newName string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return err
	}

	if err := v.directory.rename(oldName, newName); err != nil {
		return checkpoint.From(err)
	}
	return checkpoint.From(v.persist())
}

// Check validates the structure of the volume: every chain of a file ends with an end of chain marker,
// contains no loops, shares no cluster with another file and is not longer than the file size requires.
// Every used data cluster has to belong to a file.
func (v *Volume) Check() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return err
	}
	if v.table[DirectorySector] != entryReservedDir {
		return checkpoint.Wrap(fmt.Errorf("directory cluster marked as `%d`", v.table[DirectorySector]), ErrCorrupt)
	}

	owner := make(map[Cluster]string)
	for _, slot := range v.directory {
		if !slot.used {
			continue
		}

		clusters, err := v.table.chain(slot.firstCluster)
		if err != nil {
			return checkpoint.Wrapf(err, "checking `%s`: %w", slot.name, ErrCorrupt)
		}

		maxClusters := (int(slot.size)+ClusterSize-1)/ClusterSize + 1
		if len(clusters) > maxClusters {
			return checkpoint.Wrap(fmt.Errorf("`%s` has `%d` clusters for `%d` bytes", slot.name, len(clusters), slot.size), ErrCorrupt)
		}

		for _, c := range clusters {
			if other, ok := owner[c]; ok {
				return checkpoint.Wrap(fmt.Errorf("cluster `%d` is shared by `%s` and `%s`", c, other, slot.name), ErrCorrupt)
			}
			owner[c] = slot.name
		}
	}

	for i := int(FirstDataCluster); i < TableEntries; i++ {
		c := Cluster(i)
		if !v.table[c].IsFree() {
			if _, ok := owner[c]; !ok {
				return checkpoint.Wrap(fmt.Errorf("cluster `%d` is in use but belongs to no file", c), ErrCorrupt)
			}
		}
	}
	return nil
}

// trimLabel cuts label to the label field size without splitting a UTF-8 sequence.
func trimLabel(label string) string {
	if len(label) <= labelSize {
		return label
	}

	cut := labelSize
	for cut > 0 && !utf8.RuneStart(label[cut]) {
		cut--
	}
	return label[:cut]
}
