package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// ResumePreconditionError reports a missing required artifact at a block
// boundary when resuming a run (spec §7 item 2): fatal, exit code 1.
type ResumePreconditionError struct {
	Slot     int
	Block    int
	Variable Variable
	Path     string
}

func (e *ResumePreconditionError) Error() string {
	return fmt.Sprintf("checkpoint: missing required artifact for slot %d block %d (%s): %s", e.Slot, e.Block, e.Variable, e.Path)
}

// transientRetryBackoff is how long Store waits before retrying a failed
// write once (spec §7 item 6).
const transientRetryBackoff = 50 * time.Millisecond

// Store performs atomic, filesystem-backed persistence of parameter tables
// and outcome/likelihood artifacts under a Layout, grounded on the teacher's
// EventStore.Save: write to a temporary sibling, then os.Rename into place.
type Store struct {
	Root   string
	Layout Layout
	Logger zerolog.Logger
}

// Write atomically persists data at the path Layout.Path resolves to,
// retrying once with a short backoff on a transient I/O fault.
func (s *Store) Write(variable Variable, scope Scope, phase Phase, slot, block, iteration int, ext string, data []byte) error {
	rel, err := s.Layout.Path(variable, scope, phase, slot, block, iteration, ext)
	if err != nil {
		return err
	}
	path := filepath.Join(s.Root, rel)

	writeErr := s.writeAtomic(path, data)
	if writeErr == nil {
		return nil
	}

	s.Logger.Warn().Err(writeErr).Str("path", path).Msg("transient checkpoint write failure, retrying")
	time.Sleep(transientRetryBackoff)
	if retryErr := s.writeAtomic(path, data); retryErr != nil {
		return fmt.Errorf("checkpoint: write to %s failed after retry: %w", path, retryErr)
	}
	return nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Read loads the raw bytes of the artifact at the given coordinates.
func (s *Store) Read(variable Variable, scope Scope, phase Phase, slot, block, iteration int, ext string) ([]byte, error) {
	rel, err := s.Layout.Path(variable, scope, phase, slot, block, iteration, ext)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Root, rel))
}

// Exists reports whether the artifact at the given coordinates is present.
func (s *Store) Exists(variable Variable, scope Scope, phase Phase, slot, block, iteration int, ext string) bool {
	rel, err := s.Layout.Path(variable, scope, phase, slot, block, iteration, ext)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(s.Root, rel))
	return err == nil
}

// BeginBlock resolves block k's predecessor (phase=intermediate, index k-1)
// and verifies every required variable exists there (spec §4.6 "Begin block
// k"). For k=1 nothing is required — those artifacts are synthesized by
// initialization instead.
func (s *Store) BeginBlock(slot, block int, scope Scope, iteration int, ext string, required []Variable) error {
	if block <= 1 {
		return nil
	}
	prevBlock := block - 1
	for _, variable := range required {
		if !s.Exists(variable, scope, PhaseIntermediate, slot, prevBlock, iteration, ext) {
			rel, _ := s.Layout.Path(variable, scope, PhaseIntermediate, slot, prevBlock, iteration, ext)
			return &ResumePreconditionError{Slot: slot, Block: prevBlock, Variable: variable, Path: rel}
		}
	}
	return nil
}

// CommitIteration copies an accepted iteration's artifact into the
// phase=final slot (spec §4.6 "Commit iteration i within block k"). It
// writes no separate block-stable copy, and the phase=final name carries no
// block component, so each commit overwrites the previous one.
func (s *Store) CommitIteration(variable Variable, scope Scope, slot, block, iteration int, ext string) error {
	data, err := s.Read(variable, scope, PhaseIntermediate, slot, block, iteration, ext)
	if err != nil {
		return fmt.Errorf("checkpoint: reading accepted iteration artifact: %w", err)
	}
	if err := s.Write(variable, scope, PhaseFinal, slot, block, 0, ext, data); err != nil {
		return fmt.Errorf("checkpoint: committing final artifact: %w", err)
	}
	return nil
}

// GarbageCollectIteration removes a rejected iteration's global artifacts
// (spec §4.6 "Garbage collection").
func (s *Store) GarbageCollectIteration(variables []Variable, slot, block, iteration int, ext string) error {
	for _, variable := range variables {
		rel, err := s.Layout.Path(variable, ScopeGlobal, PhaseIntermediate, slot, block, iteration, ext)
		if err != nil {
			return err
		}
		path := filepath.Join(s.Root, rel)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkpoint: garbage collecting %s: %w", path, err)
		}
	}
	return nil
}

// Copy duplicates an existing artifact to a new set of coordinates, used
// when a variable's stable name is derived by copy rather than re-encoding
// (spec §4.6 "copy (or move)").
func (s *Store) Copy(variable Variable, fromScope, toScope Scope, fromPhase, toPhase Phase, fromSlot, fromBlock, fromIteration, toSlot, toBlock, toIteration int, ext string) error {
	srcRel, err := s.Layout.Path(variable, fromScope, fromPhase, fromSlot, fromBlock, fromIteration, ext)
	if err != nil {
		return err
	}
	dstRel, err := s.Layout.Path(variable, toScope, toPhase, toSlot, toBlock, toIteration, ext)
	if err != nil {
		return err
	}
	src, err := os.Open(filepath.Join(s.Root, srcRel))
	if err != nil {
		return fmt.Errorf("checkpoint: opening copy source: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("checkpoint: reading copy source: %w", err)
	}
	dstDir := filepath.Dir(filepath.Join(s.Root, dstRel))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: creating copy destination directory: %w", err)
	}
	return s.writeAtomic(filepath.Join(s.Root, dstRel), data)
}
