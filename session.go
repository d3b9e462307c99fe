package rsfs

import (
	"fmt"

	"github.com/aligator/rsfs/checkpoint"
	"github.com/sirupsen/logrus"
)

// Mode selects if a session reads or writes its file.
type Mode uint8

const (
	ModeRead Mode = iota + 1
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// SessionID identifies an open file. It is the directory slot of the file.
type SessionID int

// session holds the cursor state and the staging buffer of one open file.
type session struct {
	used     bool
	mode     Mode
	dirIndex int

	head    Cluster
	current Cluster

	writeCursor int
	readCursor  int
	totalRead   int64

	buffer [ClusterSize]byte
}

// lookupSession returns the used session for id.
func (v *Volume) lookupSession(id SessionID) (*session, error) {
	if id < 0 || int(id) >= MaxSessions || !v.sessions[id].used {
		return nil, checkpoint.Wrap(fmt.Errorf("session `%d`", id), ErrNotOpen)
	}
	return &v.sessions[id], nil
}

// Open opens the file called name.
// In ModeRead the file has to exist. In ModeWrite an existing file is truncated and a missing file is created.
// A file can only be open once at a time.
func (v *Volume) Open(name string, mode Mode) (SessionID, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkFormatted(); err != nil {
		return -1, err
	}

	slot, findErr := v.directory.find(name)
	if findErr == nil && v.sessions[slot].used {
		return -1, checkpoint.Wrap(fmt.Errorf("opening `%s` a second time", name), ErrTooManyOpen)
	}

	switch mode {
	case ModeRead:
		if findErr != nil {
			return -1, checkpoint.From(findErr)
		}
	case ModeWrite:
		if findErr == nil {
			if err := v.remove(name); err != nil {
				return -1, checkpoint.From(err)
			}
		}

		var err error
		slot, err = v.create(name)
		if err != nil {
			// A removed file stays removed, so persist anyway.
			return -1, checkpoint.From(firstError(err, v.persist()))
		}
		if err := v.persist(); err != nil {
			return -1, checkpoint.From(err)
		}
	default:
		return -1, checkpoint.Wrap(fmt.Errorf("opening `%s` with %v", name, mode), ErrWrongMode)
	}

	s := &v.sessions[slot]
	*s = session{
		used:     true,
		mode:     mode,
		dirIndex: slot,
		head:     v.directory[slot].firstCluster,
		current:  v.directory[slot].firstCluster,
	}

	if mode == ModeRead {
		if err := v.readSector(uint32(s.current), s.buffer[:]); err != nil {
			*s = session{}
			return -1, checkpoint.From(err)
		}
	}

	v.log.WithFields(logrus.Fields{
		"name": name,
		"slot": slot,
		"mode": mode,
	}).Debug("opened file")
	return SessionID(slot), nil
}

// Close closes the session. For sessions in ModeWrite the pending data is written
// and the final file size is stored.
func (v *Volume) Close(id SessionID) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	s, err := v.lookupSession(id)
	if err != nil {
		return err
	}
	defer func() {
		*s = session{}
	}()

	if s.mode != ModeWrite {
		v.log.WithField("slot", s.dirIndex).Debug("closed file")
		return nil
	}

	if err := v.writeSector(uint32(s.current), s.buffer[:]); err != nil {
		return checkpoint.From(err)
	}
	v.directory[s.dirIndex].size += uint32(s.writeCursor)

	v.log.WithFields(logrus.Fields{
		"name": v.directory[s.dirIndex].name,
		"slot": s.dirIndex,
		"size": v.directory[s.dirIndex].size,
	}).Debug("closed file")
	return checkpoint.From(v.persist())
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
