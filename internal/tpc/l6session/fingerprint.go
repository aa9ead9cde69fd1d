package l6session

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
)

// Fingerprint hashes the physics content of tracks in order. Two runs over
// the same input agree on the fingerprint exactly when their tracks are
// bit-identical; IDs and timing are not included.
func Fingerprint(tracks []AcceptedTrack) uint64 {
	buf := make([]byte, 0, 512*len(tracks))
	for i := range tracks {
		t := &tracks[i]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Seed))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Refs)))
		for _, id := range t.Refs {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
		}
		buf = appendParam(buf, t.Inner)
		buf = appendParam(buf, t.Outer)
		for _, v := range []float64{t.Chi2, t.RefitChi2, t.DEdx} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(t.Label)))
	}
	return xxh3.Hash(buf)
}

func appendParam(buf []byte, p l3kalman.Param) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.X))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Alpha))
	for _, v := range p.P {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	for _, v := range p.C {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}
