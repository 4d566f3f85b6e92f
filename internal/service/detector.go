package service

import (
	"crypto/sha256"
	"time"
)

// ChangeClass is the detector's verdict on the two replicas.
type ChangeClass int

const (
	// ChangeNone: neither side moved past the baseline, or both moved but
	// the bodies are identical.
	ChangeNone ChangeClass = iota
	// ChangeLocalOnly: pushing is safe.
	ChangeLocalOnly
	// ChangeRemoteOnly: pulling with a straight overwrite is safe.
	ChangeRemoteOnly
	// ChangeConflict: both sides diverged and neither can be applied without
	// an explicit caller decision.
	ChangeConflict
)

func (c ChangeClass) String() string {
	switch c {
	case ChangeLocalOnly:
		return "local_only"
	case ChangeRemoteOnly:
		return "remote_only"
	case ChangeConflict:
		return "conflict"
	default:
		return "none"
	}
}

// ChangeInputs feeds ClassifyChanges. Baseline is the last successful sync,
// or the record's creation time if it was never synced.
type ChangeInputs struct {
	LocalModified  time.Time
	RemoteModified time.Time
	Baseline       time.Time
	LocalContent   string
	RemoteContent  string
}

// ClassifyChanges compares both replicas against the sync baseline. The
// timestamp heuristic alone is vulnerable to clock skew and no-op writes that
// still bump modification times, so a conflict is only declared when the
// bodies actually differ as well.
func ClassifyChanges(in ChangeInputs) ChangeClass {
	hasLocal := in.LocalModified.After(in.Baseline)
	hasRemote := in.RemoteModified.After(in.Baseline)

	switch {
	case hasLocal && hasRemote:
		if sha256.Sum256([]byte(in.LocalContent)) == sha256.Sum256([]byte(in.RemoteContent)) {
			return ChangeNone
		}
		return ChangeConflict
	case hasLocal:
		return ChangeLocalOnly
	case hasRemote:
		return ChangeRemoteOnly
	default:
		return ChangeNone
	}
}
