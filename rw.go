package rsfs

import (
	"fmt"
	"io"

	"github.com/aligator/rsfs/checkpoint"
	"github.com/sirupsen/logrus"
)

// Write appends p to the file of a session opened in ModeWrite.
// Full clusters are written to the device immediately, the last partial cluster stays in the
// staging buffer until the next Write fills it or the session is closed.
//
// If the volume runs out of space, the amount of bytes accepted so far is returned
// together with ErrNoSpace. The file may then be truncated.
func (v *Volume) Write(id SessionID, p []byte) (int, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	s, err := v.lookupSession(id)
	if err != nil {
		return 0, err
	}
	if s.mode != ModeWrite {
		return 0, checkpoint.Wrap(fmt.Errorf("writing to session `%d` opened for %v", id, s.mode), ErrWrongMode)
	}

	written := 0
	for written < len(p) {
		// A full buffer is left behind by a failed extension, try again before copying.
		if s.writeCursor == ClusterSize {
			if err := v.advanceWrite(s); err != nil {
				return written, checkpoint.From(err)
			}
		}

		n := copy(s.buffer[s.writeCursor:], p[written:])
		s.writeCursor += n
		written += n

		if s.writeCursor == ClusterSize {
			if err := v.advanceWrite(s); err != nil {
				return written, checkpoint.From(err)
			}
		}
	}

	v.table[s.current] = entryEndOfChain
	return written, checkpoint.From(v.persist())
}

// advanceWrite flushes the full staging buffer and continues in a newly appended cluster.
func (v *Volume) advanceWrite(s *session) error {
	if err := v.writeSector(uint32(s.current), s.buffer[:]); err != nil {
		return err
	}

	next, err := v.table.extend(s.current)
	if err != nil {
		return err
	}

	v.log.WithFields(logrus.Fields{
		"slot":    s.dirIndex,
		"cluster": next,
	}).Debug("extended chain")

	s.current = next
	s.writeCursor = 0
	s.buffer = [ClusterSize]byte{}
	v.directory[s.dirIndex].size += ClusterSize
	return nil
}

// Read reads up to len(p) bytes from the file of a session opened in ModeRead.
// It never reads behind the file size. At the end of the file 0 and io.EOF are returned.
func (v *Volume) Read(id SessionID, p []byte) (int, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	s, err := v.lookupSession(id)
	if err != nil {
		return 0, err
	}
	if s.mode != ModeRead {
		return 0, checkpoint.Wrap(fmt.Errorf("reading from session `%d` opened for %v", id, s.mode), ErrWrongMode)
	}

	remaining := int64(v.directory[s.dirIndex].size) - s.totalRead
	if remaining <= 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	read := 0
	for read < len(p) {
		if s.readCursor == ClusterSize {
			if err := v.advanceRead(s); err != nil {
				return read, checkpoint.From(err)
			}
		}

		n := copy(p[read:], s.buffer[s.readCursor:])
		s.readCursor += n
		s.totalRead += int64(n)
		read += n
	}
	return read, nil
}

// advanceRead loads the cluster following the current one into the staging buffer.
func (v *Volume) advanceRead(s *session) error {
	next, ok := v.table.next(s.current)
	if !ok {
		return checkpoint.Wrap(fmt.Errorf("chain of slot `%d` ends at cluster `%d` before the file size", s.dirIndex, s.current), ErrCorrupt)
	}

	if err := v.readSector(uint32(next), s.buffer[:]); err != nil {
		return err
	}
	s.current = next
	s.readCursor = 0
	return nil
}
