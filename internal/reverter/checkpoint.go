package reverter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/logger"
)

const (
	tempDir      = "temp"
	challengeDir = "challenge"
	backupsDir   = "backups"
	manifestFile = "manifest.yaml"
)

// fileRecord describes one snapshotted file inside a checkpoint set.
type fileRecord struct {
	// Path is the absolute original location of the file.
	Path string `yaml:"path"`
	// Backup is the snapshot's name inside the set directory. Empty
	// when the file did not exist at snapshot time; restoring such a
	// record deletes the file.
	Backup string `yaml:"backup,omitempty"`
}

// manifest is the on-disk description of a checkpoint set.
type manifest struct {
	Title   string       `yaml:"title,omitempty"`
	Created time.Time    `yaml:"created"`
	Files   []fileRecord `yaml:"files"`
}

// Reverter snapshots configuration files before they are modified and
// restores them on demand. Snapshots accumulate in an in-progress set
// under <workDir>/temp until Commit seals them into a numbered set
// under <workDir>/backups; challenge cleanup uses a separate set under
// <workDir>/challenge that never becomes permanent.
type Reverter struct {
	workDir string
}

// New creates a Reverter over workDir, creating the directory layout
// if needed.
func New(workDir string) (*Reverter, error) {
	for _, sub := range []string{tempDir, challengeDir, backupsDir} {
		if err := os.MkdirAll(filepath.Join(workDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create work directory %s: %w", filepath.Join(workDir, sub), err)
		}
	}
	return &Reverter{workDir: workDir}, nil
}

// WorkDir returns the reverter's backing directory.
func (r *Reverter) WorkDir() string {
	return r.workDir
}

// AddToCheckpoint snapshots the given files into the in-progress set.
// Files already snapshotted in this set are skipped, so the set always
// holds each file's content from before the first mutation.
func (r *Reverter) AddToCheckpoint(paths []string) error {
	return r.addToSet(filepath.Join(r.workDir, tempDir), paths)
}

// AddToChallengeCheckpoint snapshots files into the temporary
// challenge set, restored by RevertTemporary rather than Rollback.
func (r *Reverter) AddToChallengeCheckpoint(paths []string) error {
	return r.addToSet(filepath.Join(r.workDir, challengeDir), paths)
}

func (r *Reverter) addToSet(dir string, paths []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory %s: %w", dir, err)
	}

	m, err := readManifest(dir)
	if err != nil {
		return err
	}
	if m == nil {
		m = &manifest{Created: time.Now()}
	}

	snapshotted := make(map[string]bool, len(m.Files))
	for _, rec := range m.Files {
		snapshotted[rec.Path] = true
	}

	changed := false
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		if snapshotted[abs] {
			continue
		}

		rec := fileRecord{Path: abs}
		data, err := os.ReadFile(abs)
		switch {
		case err == nil:
			rec.Backup = fmt.Sprintf("%04d.conf", len(m.Files))
			if err := os.WriteFile(filepath.Join(dir, rec.Backup), data, 0644); err != nil {
				return fmt.Errorf("failed to snapshot %s: %w", abs, err)
			}
		case os.IsNotExist(err):
			// New file; record with no backup so a restore deletes it.
		default:
			return fmt.Errorf("failed to read %s for snapshot: %w", abs, err)
		}

		logger.Debug("snapshotted %s into %s", abs, dir)
		m.Files = append(m.Files, rec)
		snapshotted[abs] = true
		changed = true
	}

	if !changed {
		return nil
	}
	return writeManifest(dir, m)
}

// Commit seals the in-progress set into a new numbered backup set. A
// commit with nothing snapshotted is a no-op.
func (r *Reverter) Commit(title string) error {
	temp := filepath.Join(r.workDir, tempDir)
	m, err := readManifest(temp)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}

	m.Title = title
	if err := writeManifest(temp, m); err != nil {
		return err
	}

	nums, err := r.backupNumbers()
	if err != nil {
		return err
	}
	next := 1
	if len(nums) > 0 {
		next = nums[len(nums)-1] + 1
	}

	dest := filepath.Join(r.workDir, backupsDir, fmt.Sprintf("%04d", next))
	if err := os.Rename(temp, dest); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	if err := os.MkdirAll(temp, 0755); err != nil {
		return fmt.Errorf("failed to recreate temp directory: %w", err)
	}

	logger.Debug("committed checkpoint %04d: %s", next, title)
	return nil
}

// Rollback restores the n most recent committed sets, newest first.
func (r *Reverter) Rollback(n int) error {
	if n < 1 {
		return errors.Validation(fmt.Sprintf("rollback count must be positive, got %d", n))
	}

	nums, err := r.backupNumbers()
	if err != nil {
		return err
	}
	if len(nums) == 0 {
		return errors.Wrap(errors.ErrCodeRevert, "no checkpoints to roll back", nil)
	}
	if n > len(nums) {
		n = len(nums)
	}

	for i := 0; i < n; i++ {
		num := nums[len(nums)-1-i]
		dir := filepath.Join(r.workDir, backupsDir, fmt.Sprintf("%04d", num))
		if err := restoreSet(dir); err != nil {
			return err
		}
		logger.Debug("rolled back checkpoint %04d", num)
	}
	return nil
}

// RevertPending restores and clears the in-progress set without
// touching the challenge set, used to undo an uncommitted mutation
// batch while challenge files stay served. A missing or empty set is a
// no-op.
func (r *Reverter) RevertPending() error {
	return restoreSet(filepath.Join(r.workDir, tempDir))
}

// RevertTemporary restores and clears the challenge set. A missing or
// empty set is a no-op.
func (r *Reverter) RevertTemporary() error {
	return restoreSet(filepath.Join(r.workDir, challengeDir))
}

// Recover restores any in-progress and challenge snapshots left behind
// by an interrupted session. It reports whether anything was restored.
func (r *Reverter) Recover() (bool, error) {
	recovered := false
	for _, sub := range []string{tempDir, challengeDir} {
		dir := filepath.Join(r.workDir, sub)
		m, err := readManifest(dir)
		if err != nil {
			return recovered, err
		}
		if m == nil {
			continue
		}
		logger.Info("recovering %d file(s) from an interrupted session", len(m.Files))
		if err := restoreSet(dir); err != nil {
			return recovered, err
		}
		recovered = true
	}
	return recovered, nil
}

// Checkpoints lists the committed sets, oldest first.
func (r *Reverter) Checkpoints() ([]CheckpointInfo, error) {
	nums, err := r.backupNumbers()
	if err != nil {
		return nil, err
	}

	infos := make([]CheckpointInfo, 0, len(nums))
	for _, num := range nums {
		dir := filepath.Join(r.workDir, backupsDir, fmt.Sprintf("%04d", num))
		m, err := readManifest(dir)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		files := make([]string, len(m.Files))
		for i, rec := range m.Files {
			files[i] = rec.Path
		}
		infos = append(infos, CheckpointInfo{Number: num, Title: m.Title, Created: m.Created, Files: files})
	}
	return infos, nil
}

// CheckpointInfo summarizes one committed checkpoint set.
type CheckpointInfo struct {
	Number  int
	Title   string
	Created time.Time
	Files   []string
}

// restoreSet puts every file in the set back to its snapshotted state
// and removes the set's contents. Records without a backup are files
// that did not exist before; those are deleted.
func restoreSet(dir string) error {
	m, err := readManifest(dir)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}

	for _, rec := range m.Files {
		if rec.Backup == "" {
			if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
				return errors.Wrap(errors.ErrCodeRevert, fmt.Sprintf("failed to remove %s", rec.Path), err)
			}
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, rec.Backup))
		if err != nil {
			return errors.Wrap(errors.ErrCodeRevert, fmt.Sprintf("failed to read snapshot of %s", rec.Path), err)
		}
		if err := os.WriteFile(rec.Path, data, 0644); err != nil {
			return errors.Wrap(errors.ErrCodeRevert, fmt.Sprintf("failed to restore %s", rec.Path), err)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear checkpoint set %s: %w", dir, err)
	}
	return nil
}

// backupNumbers returns the committed set numbers in ascending order.
func (r *Reverter) backupNumbers() ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(r.workDir, backupsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var nums []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		num, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums, nil
}

// readManifest loads a set's manifest, returning nil when the set is
// empty or absent.
func readManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest in %s: %w", dir, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest in %s: %w", dir, err)
	}
	return &m, nil
}

func writeManifest(dir string, m *manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest in %s: %w", dir, err)
	}
	return nil
}
