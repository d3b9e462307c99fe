// File model contains the constants and structs which match the on-disk layout of an RSFS volume.

package rsfs

const (
	// ClusterSize is the size of a cluster, which is exactly one sector.
	ClusterSize = 4096
	// SectorSize is the size of a single sector of the BlockDevice.
	SectorSize = ClusterSize

	// TableEntries is the amount of clusters addressed by the allocation table.
	TableEntries = 65536
	// TableSectors is the amount of sectors holding the allocation table (2 bytes per entry).
	TableSectors = TableEntries * 2 / SectorSize

	// DirectorySector holds all directory entries and the volume header.
	DirectorySector = TableSectors
	// DirectoryEntries is the fixed capacity of the directory.
	DirectoryEntries = 128
	// MaxNameLength is the maximum length of a file name in bytes.
	MaxNameLength = 24

	// FirstDataCluster is the first cluster which may be allocated for file data.
	// All clusters before it are covered by the reserved markers.
	FirstDataCluster Cluster = DirectorySector + 1

	// MaxSessions is the capacity of the session table.
	MaxSessions = DirectoryEntries
)

// Cluster is an index into the allocation table and at the same time the sector
// which holds the data of that cluster.
type Cluster uint16

// Allocation table values with a special meaning. Every other value links to the next cluster of a chain.
const (
	entryFree          Cluster = 1
	entryEndOfChain    Cluster = 2
	entryReservedTable Cluster = 3
	entryReservedDir   Cluster = 4
)

// IsFree reports if the entry marks a free cluster.
func (c Cluster) IsFree() bool {
	return c == entryFree
}

// IsEndOfChain reports if the entry marks the last cluster of a chain.
func (c Cluster) IsEndOfChain() bool {
	return c == entryEndOfChain
}

// IsReserved reports if the entry marks a cluster used by the volume metadata.
func (c Cluster) IsReserved() bool {
	return c == entryReservedTable || c == entryReservedDir
}

// IsNext reports if the entry links to another data cluster.
func (c Cluster) IsNext() bool {
	return c >= FirstDataCluster
}

// dirEntryHeader is the on-disk form of one directory slot (31 bytes).
type dirEntryHeader struct {
	Used         uint8
	Name         [MaxNameLength]byte
	FirstCluster Cluster
	Size         uint32
}

// dirEntryHeaderSize is the encoded size of dirEntryHeader.
const dirEntryHeaderSize = 1 + MaxNameLength + 2 + 4

// labelSize is the size of the label field in bytes.
const labelSize = 11

// volumeHeader is stored directly behind the directory entries in the directory sector.
type volumeHeader struct {
	VolumeID    [16]byte
	VolumeLabel [labelSize]byte
}

const volumeHeaderOffset = DirectoryEntries * dirEntryHeaderSize
