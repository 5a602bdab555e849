package pcq

import (
	"go.uber.org/zap"
)

// Shmem is a handle to a shared memory segment that travels through the
// ring by id. Writing a handle transfers it: the local endpoint loses write
// access and stops tracking the segment. Reading one borrows the segment
// from the consumer's SharedMemory until Close.
type Shmem struct {
	seg Segment
}

// NewShmem wraps a segment the caller owns.
func NewShmem(seg Segment) Shmem {
	return Shmem{seg: seg}
}

// Valid reports whether the handle refers to a segment.
func (h *Shmem) Valid() bool {
	return h.seg != nil
}

// ID returns the segment id, or zero for an empty handle.
func (h *Shmem) ID() SegmentID {
	if h.seg == nil {
		return 0
	}
	return h.seg.ID()
}

// Bytes returns the mapped segment, or nil for an empty handle.
func (h *Shmem) Bytes() []byte {
	if h.seg == nil {
		return nil
	}
	return h.seg.Bytes()
}

// Close releases the handle's reference. It is safe to call more than once.
func (h *Shmem) Close() {
	if h.seg == nil {
		return
	}
	h.seg.Release()
	h.seg = nil
}

type shmemTraits struct{}

func (shmemTraits) Write(pv *ProducerView, v *Shmem) Status {
	if v.seg == nil {
		Logger().Error("writing empty shared memory handle")
		return FatalError
	}
	id := uint64(v.seg.ID())
	if st := WriteWith(pv, sizeTraits, &id); st != Success {
		return st
	}
	if err := v.seg.RevokeRights(); err != nil {
		Logger().Warn("revoke segment rights",
			zap.Uint64("segment", id),
			zap.Error(err))
	}
	v.seg.Forget()
	v.seg = nil
	pv.segments = append(pv.segments, SegmentID(id))
	return Success
}

func (shmemTraits) Read(cv *ConsumerView, v *Shmem) Status {
	var id uint64
	if st := ReadWith(cv, sizeTraits, &id); st != Success {
		return st
	}
	seg := cv.lookupSegment(SegmentID(id))
	if seg == nil {
		Logger().Warn("unknown shared memory segment",
			zap.Uint64("segment", id))
		return FatalError
	}
	if v == nil {
		seg.Release()
		return Success
	}
	v.Close()
	v.seg = seg
	return Success
}

func (shmemTraits) MinSize(View, *Shmem) int {
	return sizeTraits.MinSize(nil, nil)
}
