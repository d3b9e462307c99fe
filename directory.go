package rsfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/aligator/rsfs/checkpoint"
)

// DirEntry is the public view of one used directory slot.
type DirEntry struct {
	Name string
	Size int64
}

// dirSlot is one directory slot. Its position in the directory is its identity.
type dirSlot struct {
	used         bool
	name         string
	firstCluster Cluster
	size         uint32
}

// directory is the flat, fixed capacity list of files.
type directory [DirectoryEntries]dirSlot

func (d *directory) format() {
	for i := range d {
		d[i] = dirSlot{}
	}
}

// validateName checks that name can be stored in a slot and read back unchanged.
func validateName(name string) error {
	switch {
	case name == "":
		return checkpoint.Wrap(fmt.Errorf("empty name"), ErrInvalidName)
	case len(name) > MaxNameLength:
		return checkpoint.Wrap(fmt.Errorf("name `%s` is longer than %d bytes", name, MaxNameLength), ErrInvalidName)
	case strings.ContainsAny(name, "/\x00"):
		return checkpoint.Wrap(fmt.Errorf("name `%s` contains '/' or NUL", name), ErrInvalidName)
	case strings.HasSuffix(name, " "):
		return checkpoint.Wrap(fmt.Errorf("name `%s` ends with a space", name), ErrInvalidName)
	}
	return nil
}

// find returns the slot index of the used entry called name.
func (d *directory) find(name string) (int, error) {
	for i := range d {
		if d[i].used && d[i].name == name {
			return i, nil
		}
	}
	return -1, checkpoint.Wrap(fmt.Errorf("looking up `%s`", name), ErrNotFound)
}

func (d *directory) freeSlot() (int, bool) {
	for i := range d {
		if !d[i].used {
			return i, true
		}
	}
	return -1, false
}

// create installs a new empty file with a single cluster in the first free slot.
// The slot is found before the cluster is allocated so a full directory does not leak a cluster.
func (d *directory) create(t *table, name string) (int, error) {
	if err := validateName(name); err != nil {
		return -1, err
	}
	if _, err := d.find(name); err == nil {
		return -1, checkpoint.Wrap(fmt.Errorf("creating `%s`", name), ErrAlreadyExists)
	}

	slot, ok := d.freeSlot()
	if !ok {
		return -1, checkpoint.Wrap(fmt.Errorf("creating `%s`: directory is full", name), ErrNoSpace)
	}

	cluster, err := t.allocate()
	if err != nil {
		return -1, checkpoint.Wrapf(err, "creating `%s`: %w", name, ErrNoSpace)
	}

	d[slot] = dirSlot{
		used:         true,
		name:         name,
		firstCluster: cluster,
		size:         0,
	}
	return slot, nil
}

// remove releases the chain of the file and clears its slot.
func (d *directory) remove(t *table, name string) (int, error) {
	slot, err := d.find(name)
	if err != nil {
		return -1, checkpoint.From(err)
	}

	t.release(d[slot].firstCluster)
	d[slot] = dirSlot{}
	return slot, nil
}

func (d *directory) rename(oldName, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}

	slot, err := d.find(oldName)
	if err != nil {
		return checkpoint.From(err)
	}
	if oldName == newName {
		return nil
	}
	if _, err := d.find(newName); err == nil {
		return checkpoint.Wrap(fmt.Errorf("renaming `%s` to `%s`", oldName, newName), ErrAlreadyExists)
	}

	d[slot].name = newName
	return nil
}

// list returns all used entries in slot order.
func (d *directory) list() []DirEntry {
	var entries []DirEntry
	for _, slot := range d {
		if slot.used {
			entries = append(entries, DirEntry{Name: slot.name, Size: int64(slot.size)})
		}
	}
	return entries
}

// encode writes all slots to the beginning of the directory sector.
func (d *directory) encode(sector []byte) error {
	buf := bytes.NewBuffer(make([]byte, 0, DirectoryEntries*dirEntryHeaderSize))
	for _, slot := range d {
		header := dirEntryHeader{
			FirstCluster: slot.firstCluster,
			Size:         slot.size,
		}
		copy(header.Name[:], strings.Repeat(" ", MaxNameLength))
		if slot.used {
			header.Used = 1
			copy(header.Name[:], slot.name)
		}

		if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
			return checkpoint.From(err)
		}
	}

	copy(sector, buf.Bytes())
	return nil
}

// decode reads all slots from the directory sector.
func (d *directory) decode(sector []byte) error {
	reader := bytes.NewReader(sector[:DirectoryEntries*dirEntryHeaderSize])
	for i := range d {
		var header dirEntryHeader
		if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
			return checkpoint.Wrap(err, ErrCorrupt)
		}

		if header.Used == 0 {
			d[i] = dirSlot{}
			continue
		}
		d[i] = dirSlot{
			used:         true,
			name:         strings.TrimRight(string(header.Name[:]), " \x00"),
			firstCluster: header.FirstCluster,
			size:         header.Size,
		}
	}
	return nil
}
