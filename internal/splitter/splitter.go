package splitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"docsplit/internal/archive"
	"docsplit/internal/fileutil"
	"docsplit/internal/inventory"
	"docsplit/internal/logging"
	"docsplit/internal/manifest"
	"docsplit/internal/partition"
	"docsplit/internal/services"
)

// LockFileName is the advisory lock created inside the output directory for
// the duration of a run.
const LockFileName = ".docsplit.lock"

// Options configures a split run.
type Options struct {
	// ByteCeiling is the soft per-archive size bound, counted against document
	// payload plus the shared schema and manifest overhead.
	ByteCeiling int64
	// DocumentCeiling is the hard per-archive document bound.
	DocumentCeiling int
	OutputDir       string
	// Workers bounds concurrent archive assembly. Values below 1 mean 1.
	Workers int
	// Strict makes a metadata entry without a primary file fatal. When false
	// the document is skipped and reported in Result.Skipped.
	Strict bool
}

// Output describes one written archive.
type Output struct {
	Ordinal   int
	Path      string
	Documents int
	// Bytes is the size of the finished archive on disk.
	Bytes int64
}

// Result summarizes a completed run.
type Result struct {
	Outputs []Output
	// Skipped lists documents dropped in lenient mode.
	Skipped []string
	// Overhead is the shared schema plus manifest size carried by every
	// partition.
	Overhead  int64
	Documents int
}

// Split repackages the export archive at archivePath into bounded archives
// named <base>_<n>.zip under opts.OutputDir. Completed archives are left in
// place when a later one fails.
func Split(ctx context.Context, logger *slog.Logger, archivePath string, opts Options) (*Result, error) {
	logger = logging.NewComponentLogger(logger, "splitter")

	if err := validate(archivePath, opts); err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "split", "prepare output", "create output directory", err)
	}
	lock := flock.New(filepath.Join(opts.OutputDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "split", "lock output", "acquire lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "split", "lock output", "another run is writing to this output directory", nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	workDir, err := os.MkdirTemp("", "docsplit-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "split", "prepare workspace", "create temp directory", err)
	}
	defer os.RemoveAll(workDir)

	logger.Info("extracting archive", logging.String("source", archivePath))
	if err := archive.Extract(archivePath, workDir); err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "split", "extract", "unpack source archive", err)
	}

	layout, err := archive.DiscoverLayout(workDir)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "split", "discover layout", "locate export contents", err)
	}

	overhead, err := sharedOverhead(layout)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "split", "measure overhead", "stat shared files", err)
	}

	inv, skipped, err := inventory.Build(layout.Root, layout.ImagesDir, layout.LatestDir, inventory.BuildOptions{Strict: opts.Strict}, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "split", "inventory", "catalog documents", err)
	}

	man, err := manifest.Load(layout.ManifestPath)
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "split", "manifest", "parse split manifest", err)
	}

	items := make([]partition.Item, len(inv.Documents))
	for i, doc := range inv.Documents {
		items[i] = partition.Item{Name: doc.Name, Size: doc.TotalSize()}
	}
	parts, err := partition.Assign(items, overhead, partition.Limits{
		ByteCeiling:     opts.ByteCeiling,
		DocumentCeiling: opts.DocumentCeiling,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "split", "partition", "assign documents", err)
	}
	logger.Info("partition plan ready",
		logging.Int("documents", len(items)),
		logging.Int("archives", len(parts)),
		logging.Int64("overhead_bytes", overhead))

	jobs, err := buildJobs(archivePath, opts.OutputDir, layout, inv, man, parts)
	if err != nil {
		return nil, err
	}

	outputs, err := assembleAll(ctx, logger, layout.Root, jobs, opts.Workers)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(parts))
	for _, part := range parts {
		counts[part.Ordinal] = len(part.Documents)
	}
	for i := range outputs {
		outputs[i].Documents = counts[outputs[i].Ordinal]
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Ordinal < outputs[j].Ordinal })
	return &Result{
		Outputs:   outputs,
		Skipped:   skipped,
		Overhead:  overhead,
		Documents: len(items),
	}, nil
}

func validate(archivePath string, opts Options) error {
	if strings.TrimSpace(archivePath) == "" {
		return services.Wrap(services.ErrValidation, "split", "validate", "archive path is required", nil)
	}
	if _, err := os.Stat(archivePath); err != nil {
		return services.Wrap(services.ErrMissingInput, "split", "validate", "source archive", err)
	}
	if opts.ByteCeiling <= 0 {
		return services.Wrap(services.ErrValidation, "split", "validate", fmt.Sprintf("size limit must be positive, got %d", opts.ByteCeiling), nil)
	}
	if opts.DocumentCeiling < 1 {
		return services.Wrap(services.ErrValidation, "split", "validate", fmt.Sprintf("document limit must be at least 1, got %d", opts.DocumentCeiling), nil)
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return services.Wrap(services.ErrValidation, "split", "validate", "output directory is required", nil)
	}
	return nil
}

// sharedOverhead measures the schema and manifest sizes that every partition
// carries regardless of its document payload.
func sharedOverhead(layout *archive.Layout) (int64, error) {
	schemaSize, err := fileutil.FileSize(layout.SchemaPath)
	if err != nil {
		return 0, err
	}
	manifestSize, err := fileutil.FileSize(layout.ManifestPath)
	if err != nil {
		return 0, err
	}
	return schemaSize + manifestSize, nil
}

func buildJobs(archivePath, outputDir string, layout *archive.Layout, inv *inventory.Inventory, man *manifest.Manifest, parts []partition.Partition) ([]archive.Job, error) {
	schemaRel, err := layout.SchemaRelPath()
	if err != nil {
		return nil, err
	}
	manifestRel, err := layout.ManifestRelPath()
	if err != nil {
		return nil, err
	}
	manifestInfo, err := os.Stat(layout.ManifestPath)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingInput, "split", "manifest", "stat split manifest", err)
	}

	base := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	jobs := make([]archive.Job, 0, len(parts))
	for _, part := range parts {
		names := make(map[string]struct{}, len(part.Documents))
		files := []string{schemaRel}
		for _, name := range part.Documents {
			names[name] = struct{}{}
			files = append(files, inv.SiblingPaths(name)...)
		}

		filtered, err := man.Filter(names).Encode()
		if err != nil {
			return nil, services.Wrap(services.ErrIntegrity, "split", "manifest", "encode filtered manifest", err)
		}

		jobs = append(jobs, archive.Job{
			Ordinal:         part.Ordinal,
			OutputPath:      filepath.Join(outputDir, fmt.Sprintf("%s_%d.zip", base, part.Ordinal)),
			Files:           files,
			ManifestRelPath: manifestRel,
			Manifest:        filtered,
			ManifestModTime: manifestInfo.ModTime(),
		})
	}
	return jobs, nil
}

// assembleAll writes the planned archives with a bounded worker pool. The
// first failure cancels the remaining work; archives finished before the
// failure stay on disk.
func assembleAll(ctx context.Context, logger *slog.Logger, root string, jobs []archive.Job, workers int) ([]Output, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		outputs  []Output
	)
	sem := make(chan struct{}, workers)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(job archive.Job) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			if err := archive.Assemble(root, job); err != nil {
				fail(services.Wrap(services.ErrPartialWrite, "split", fmt.Sprintf("archive %d", job.Ordinal), "assemble output archive", err))
				return
			}
			size, err := fileutil.FileSize(job.OutputPath)
			if err != nil {
				fail(services.Wrap(services.ErrPartialWrite, "split", fmt.Sprintf("archive %d", job.Ordinal), "stat output archive", err))
				return
			}

			logger.Info("archive written",
				logging.Int(logging.FieldArchive, job.Ordinal),
				logging.String("path", job.OutputPath),
				logging.Int64("bytes", size))

			mu.Lock()
			outputs = append(outputs, Output{
				Ordinal: job.Ordinal,
				Path:    job.OutputPath,
				Bytes:   size,
			})
			mu.Unlock()
		}(job)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrPartialWrite, "split", "assemble", "run canceled", err)
	}
	return outputs, nil
}
