// internal/export/bundle.go
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

// ManifestName is the archive entry describing the bundle.
const ManifestName = "manifest.json"

// ErrMissingManifest is returned by ReadBundle for archives without a
// manifest.
var ErrMissingManifest = errors.New("export: bundle has no manifest")

// Bundle is every attempt of one recording session.
type Bundle struct {
	SessionID     string
	ParticipantID string
	CreatedAt     time.Time
	Geometry      kinematics.Geometry
	Attempts      []trajectory.MotionTrajectory
}

// NewBundle starts an empty bundle with a fresh session ID.
func NewBundle(participantID string, g kinematics.Geometry) *Bundle {
	return &Bundle{
		SessionID:     uuid.NewString(),
		ParticipantID: participantID,
		CreatedAt:     time.Now().UTC(),
		Geometry:      g,
	}
}

// Add appends a snapshot of traj.
func (b *Bundle) Add(traj trajectory.MotionTrajectory) {
	b.Attempts = append(b.Attempts, traj.Clone())
}

// Completed counts the attempts that reached their target.
func (b *Bundle) Completed() int {
	n := 0
	for _, a := range b.Attempts {
		if a.Completed {
			n++
		}
	}
	return n
}

// Manifest is the JSON index stored next to the CSV files.
type Manifest struct {
	SessionID     string              `json:"sessionId"`
	ParticipantID string              `json:"participantId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	Geometry      kinematics.Geometry `json:"geometry"`
	Attempts      []AttemptEntry      `json:"attempts"`
}

// AttemptEntry describes one CSV in the archive.
type AttemptEntry struct {
	File           string              `json:"file"`
	StartPosition  kinematics.Vector2D `json:"startPosition"`
	TargetPosition kinematics.Vector2D `json:"targetPosition"`
	Completed      bool                `json:"completed"`
	TotalTimeMs    float64             `json:"totalTimeMs"`
	Frames         int                 `json:"frames"`
}

func attemptFile(i int) string {
	return fmt.Sprintf("attempt_%03d.csv", i+1)
}

// WriteBundle writes b as a ZIP archive: one CSV per attempt plus the
// manifest. The CSVs are encoded in parallel before anything is written.
func WriteBundle(ctx context.Context, w io.Writer, b *Bundle) error {
	payloads := make([]bytes.Buffer, len(b.Attempts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range b.Attempts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := WriteCSV(&payloads[i], b.Attempts[i]); err != nil {
				return fmt.Errorf("failed to encode %s: %w", attemptFile(i), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manifest := Manifest{
		SessionID:     b.SessionID,
		ParticipantID: b.ParticipantID,
		CreatedAt:     b.CreatedAt,
		Geometry:      b.Geometry,
		Attempts:      make([]AttemptEntry, len(b.Attempts)),
	}

	zw := zip.NewWriter(w)
	for i, a := range b.Attempts {
		name := attemptFile(i)
		manifest.Attempts[i] = AttemptEntry{
			File:           name,
			StartPosition:  a.StartPosition,
			TargetPosition: a.TargetPosition,
			Completed:      a.Completed,
			TotalTimeMs:    a.TotalTimeMs,
			Frames:         a.Len(),
		}
		if err := writeEntry(zw, name, b.CreatedAt, payloads[i].Bytes()); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, b.CreatedAt, data); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize bundle: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// ReadBundle loads an archive written by WriteBundle. Start, target and
// completion come from the manifest since the CSVs do not carry them.
func ReadBundle(r io.ReaderAt, size int64) (*Bundle, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	mf, ok := files[ManifestName]
	if !ok {
		return nil, ErrMissingManifest
	}
	var manifest Manifest
	if err := readEntry(mf, func(rc io.Reader) error {
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &manifest)
	}); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	b := &Bundle{
		SessionID:     manifest.SessionID,
		ParticipantID: manifest.ParticipantID,
		CreatedAt:     manifest.CreatedAt,
		Geometry:      manifest.Geometry,
		Attempts:      make([]trajectory.MotionTrajectory, 0, len(manifest.Attempts)),
	}
	for _, entry := range manifest.Attempts {
		f, ok := files[entry.File]
		if !ok {
			return nil, fmt.Errorf("bundle is missing %s", entry.File)
		}

		var traj trajectory.MotionTrajectory
		if err := readEntry(f, func(rc io.Reader) error {
			traj, err = ReadCSV(rc)
			return err
		}); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.File, err)
		}
		if traj.Len() != entry.Frames {
			return nil, fmt.Errorf("%s holds %d frames, manifest says %d", entry.File, traj.Len(), entry.Frames)
		}

		traj.StartPosition = entry.StartPosition
		traj.TargetPosition = entry.TargetPosition
		traj.Completed = entry.Completed
		b.Attempts = append(b.Attempts, traj)
	}
	return b, nil
}

func readEntry(f *zip.File, fn func(io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return fn(rc)
}
