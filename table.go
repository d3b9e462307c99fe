package rsfs

import (
	"encoding/binary"
	"fmt"

	"github.com/aligator/rsfs/checkpoint"
)

// table is the allocation table. Each entry describes the cluster with the same index.
type table [TableEntries]Cluster

// format resets the table to the reserved markers followed by free clusters only.
func (t *table) format() {
	for i := range t {
		switch {
		case i < TableSectors:
			t[i] = entryReservedTable
		case i == DirectorySector:
			t[i] = entryReservedDir
		default:
			t[i] = entryFree
		}
	}
}

// isFormatted checks the signature written by format.
func (t *table) isFormatted() bool {
	for i := 0; i < TableSectors; i++ {
		if t[i] != entryReservedTable {
			return false
		}
	}
	return true
}

// allocate marks the first free data cluster as end of chain and returns it.
func (t *table) allocate() (Cluster, error) {
	for i := int(FirstDataCluster); i < TableEntries; i++ {
		if t[i].IsFree() {
			t[i] = entryEndOfChain
			return Cluster(i), nil
		}
	}
	return 0, checkpoint.New(ErrNoSpace)
}

// extend appends a new cluster behind tail, which becomes the new end of the chain.
func (t *table) extend(tail Cluster) (Cluster, error) {
	if tail < FirstDataCluster {
		return 0, checkpoint.Wrap(fmt.Errorf("extending chain at cluster `%d`", tail), ErrCorrupt)
	}

	next, err := t.allocate()
	if err != nil {
		return 0, checkpoint.From(err)
	}

	t[tail] = next
	return next, nil
}

// release frees every cluster of the chain starting at head.
// It stops after the end of chain or at the first link which cannot belong to a chain.
func (t *table) release(head Cluster) {
	current := head
	for steps := 0; steps < TableEntries && current >= FirstDataCluster; steps++ {
		next := t[current]
		if next.IsFree() || next.IsReserved() {
			return
		}

		t[current] = entryFree
		if next.IsEndOfChain() {
			return
		}
		current = next
	}
}

// chain returns all clusters of the chain starting at head in order.
func (t *table) chain(head Cluster) ([]Cluster, error) {
	var clusters []Cluster
	visited := make(map[Cluster]bool)

	current := head
	for {
		if current < FirstDataCluster {
			return clusters, checkpoint.Wrap(fmt.Errorf("chain from `%d` links to metadata cluster `%d`", head, current), ErrCorrupt)
		}
		if visited[current] {
			return clusters, checkpoint.Wrap(fmt.Errorf("chain from `%d` loops at cluster `%d`", head, current), ErrCorrupt)
		}
		visited[current] = true
		clusters = append(clusters, current)

		next := t[current]
		switch {
		case next.IsEndOfChain():
			return clusters, nil
		case next.IsNext():
			current = next
		default:
			return clusters, checkpoint.Wrap(fmt.Errorf("chain from `%d` hits entry `%d` at cluster `%d`", head, next, current), ErrCorrupt)
		}
	}
}

// next returns the cluster following c or false if c is the last one.
func (t *table) next(c Cluster) (Cluster, bool) {
	n := t[c]
	return n, n.IsNext()
}

func (t *table) freeCount() int {
	count := 0
	for _, entry := range t {
		if entry.IsFree() {
			count++
		}
	}
	return count
}

// MarshalBinary encodes the table as it is stored in the table sectors.
func (t *table) MarshalBinary() ([]byte, error) {
	data := make([]byte, TableSectors*SectorSize)
	for i, entry := range t {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(entry))
	}
	return data, nil
}

// UnmarshalBinary decodes the content of the table sectors.
func (t *table) UnmarshalBinary(data []byte) error {
	if len(data) != TableSectors*SectorSize {
		return checkpoint.Wrap(fmt.Errorf("got `%d` bytes of table data", len(data)), ErrCorrupt)
	}
	for i := range t {
		t[i] = Cluster(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return nil
}
